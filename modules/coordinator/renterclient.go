package coordinator

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/ScatterLabs/Scatter/modules"

	"gitlab.com/NebulousLabs/errors"
)

// A renterClient issues shard operations against renter HTTP servers.
// Shard transfers get the long shard I/O timeout; delete-shard gets the
// short one.
type renterClient struct {
	shardClient http.Client
	quickClient http.Client
}

// newRenterClient returns a renterClient with the standard timeouts.
func newRenterClient() *renterClient {
	return &renterClient{
		shardClient: http.Client{Timeout: shardIOTimeout},
		quickClient: http.Client{Timeout: quickTimeout},
	}
}

// storeShard streams one shard replica to a renter under the given blob
// name. The multipart body is produced through a pipe so that large shards
// never sit in memory whole.
func (rc *renterClient) storeShard(renterURL modules.RenterURL, blobName string, shard io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", blobName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, shard); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequest(http.MethodPost, renterURL.Endpoint("/store-shard/"), pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := rc.shardClient.Do(req)
	if err != nil {
		return errors.AddContext(err, "store-shard request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("renter rejected the shard: " + resp.Status)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// retrieveShard fetches a shard replica from a renter. The caller must
// close the returned stream.
func (rc *renterClient) retrieveShard(renterURL modules.RenterURL, blobName string) (io.ReadCloser, error) {
	resp, err := rc.shardClient.Get(renterURL.Endpoint("/retrieve-shard/") + "?filename=" + url.QueryEscape(blobName))
	if err != nil {
		return nil, errors.AddContext(err, "retrieve-shard request failed")
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, modules.ErrUnknownShard
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New("renter failed to serve the shard: " + resp.Status)
	}
	return resp.Body, nil
}

// deleteShard removes a shard replica from a renter. Renters report
// success for absent blobs, so only transport and server errors surface.
func (rc *renterClient) deleteShard(renterURL modules.RenterURL, blobName string) error {
	resp, err := rc.quickClient.Post(renterURL.Endpoint("/delete-shard/")+"?filename="+url.QueryEscape(blobName), "", nil)
	if err != nil {
		return errors.AddContext(err, "delete-shard request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("renter failed to delete the shard: " + resp.Status)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

package renter

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ScatterLabs/Scatter/modules"

	"gitlab.com/NebulousLabs/errors"
)

type (
	// registerRequest is the wire form of a renter registration.
	registerRequest struct {
		RenterID         modules.RenterID  `json:"renter_id,omitempty"`
		URL              modules.RenterURL `json:"url"`
		StorageAvailable uint64            `json:"storage_available"`
		LedgerAddress    string            `json:"blockchain_address,omitempty"`
	}

	// registerResponse is the coordinator's reply to a registration.
	registerResponse struct {
		RenterID modules.RenterID `json:"renter_id"`
		Message  string           `json:"message"`
	}

	// heartbeatRequest is the wire form of a heartbeat.
	heartbeatRequest struct {
		RenterID      modules.RenterID `json:"renter_id"`
		LedgerAddress string           `json:"blockchain_address,omitempty"`
	}

	// A coordinatorClient speaks the coordinator's registration endpoints.
	// Shard traffic flows the other way, so these two calls are all a
	// renter ever asks of the coordinator.
	coordinatorClient struct {
		base string
		http http.Client
	}
)

func newCoordinatorClient(coordinatorURL string) *coordinatorClient {
	base := coordinatorURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return &coordinatorClient{
		base: base,
		http: http.Client{Timeout: coordinatorTimeout},
	}
}

// post sends a JSON body to a coordinator endpoint and returns the
// response. The caller owns the response body.
func (cc *coordinatorClient) post(path string, request interface{}) (*http.Response, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	return cc.http.Post(cc.base+path, "application/json", bytes.NewReader(body))
}

// register announces the renter to the coordinator and returns the
// identity the coordinator recorded.
func (cc *coordinatorClient) register(request registerRequest) (modules.RenterID, error) {
	resp, err := cc.post("/register-renter/", request)
	if err != nil {
		return "", err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("coordinator rejected registration: " + resp.Status)
	}
	var reply registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", errors.AddContext(err, "could not decode registration reply")
	}
	return reply.RenterID, nil
}

// heartbeat refreshes the renter's registration. ErrUnknownRenter is
// returned when the coordinator no longer knows the renter, which is the
// signal to re-register.
func (cc *coordinatorClient) heartbeat(id modules.RenterID, ledgerAddress string) error {
	resp, err := cc.post("/heartbeat/", heartbeatRequest{
		RenterID:      id,
		LedgerAddress: ledgerAddress,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return modules.ErrUnknownRenter
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("coordinator rejected heartbeat: " + resp.Status)
	}
	return nil
}

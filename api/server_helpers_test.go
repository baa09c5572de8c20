package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/modules/coordinator"
	"github.com/ScatterLabs/Scatter/modules/membership"
)

// A testClient issues HTTP calls against one API server.
type testClient struct {
	baseURL string
}

// get performs a GET against the server.
func (tc *testClient) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(tc.baseURL + path)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// postJSON performs a POST with a JSON body.
func (tc *testClient) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(tc.baseURL+path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// upload pushes a file through the upload endpoint.
func (tc *testClient) upload(t *testing.T, filename, payment string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("payment", payment); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(tc.baseURL+"/upload/", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// newTestKey generates a keypair and registers its public half over the key
// registration endpoint. It returns the key and the coordinator's ledger
// address from the response.
func (tc *testClient) newTestKey(t *testing.T, username string) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pem, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	resp := tc.postJSON(t, "/register-public-key/", map[string]string{
		"username":   username,
		"public_key": string(pem),
	})
	var reply RegisterPublicKeyPOST
	decode(t, resp, &reply)
	if reply.Status != "success" {
		t.Fatal("key registration reported", reply.Status)
	}
	return key, reply.CoordinatorAddress
}

// A blobServer is an in-memory shard host standing in for a full renter
// daemon in coordinator surface tests.
type blobServer struct {
	blobs map[string][]byte
	srv   *httptest.Server
	mu    sync.Mutex
}

func newBlobServer() *blobServer {
	bs := &blobServer{blobs: make(map[string][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("/store-shard/", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		bs.mu.Lock()
		bs.blobs[header.Filename] = data
		bs.mu.Unlock()
	})
	mux.HandleFunc("/retrieve-shard/", func(w http.ResponseWriter, r *http.Request) {
		bs.mu.Lock()
		data, exists := bs.blobs[r.URL.Query().Get("filename")]
		bs.mu.Unlock()
		if !exists {
			http.Error(w, "no such blob", http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("/delete-shard/", func(w http.ResponseWriter, r *http.Request) {
		bs.mu.Lock()
		delete(bs.blobs, r.URL.Query().Get("filename"))
		bs.mu.Unlock()
	})
	bs.srv = httptest.NewServer(mux)
	return bs
}

func (bs *blobServer) blobCount() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return len(bs.blobs)
}

// A serverTester is a coordinator API server backed by real modules and a
// fleet of blob servers registered over the HTTP surface.
type serverTester struct {
	testClient

	membership  *membership.Membership
	coordinator *coordinator.Coordinator
	server      *Server
	blobServers []*blobServer
	dir         string
}

// newServerTester creates a coordinator API server with the given number
// of registered blob servers.
func newServerTester(t *testing.T, numRenters int) *serverTester {
	dir := build.TempDir("api", t.Name())
	m, err := membership.New(filepath.Join(dir, modules.MembershipDir))
	if err != nil {
		t.Fatal(err)
	}
	c, err := coordinator.New(m, nil, filepath.Join(dir, modules.CoordinatorDir))
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer("127.0.0.1:0", m, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve()

	st := &serverTester{
		testClient:  testClient{baseURL: "http://" + srv.Addr()},
		membership:  m,
		coordinator: c,
		server:      srv,
		dir:         dir,
	}
	for i := 0; i < numRenters; i++ {
		st.addBlobServer(t)
	}
	return st
}

// addBlobServer spins up a blob server and registers it through the
// register-renter endpoint.
func (st *serverTester) addBlobServer(t *testing.T) *blobServer {
	bs := newBlobServer()
	resp := st.postJSON(t, "/register-renter/", map[string]interface{}{
		"renter_id":         fmt.Sprintf("renter-%v", len(st.blobServers)),
		"url":               bs.srv.URL,
		"storage_available": 5 << 20,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatal("blob server registration failed:", resp.Status)
	}
	st.blobServers = append(st.blobServers, bs)
	return bs
}

func (st *serverTester) Close() error {
	for _, bs := range st.blobServers {
		bs.srv.Close()
	}
	return st.server.Close()
}

// heartbeatAll refreshes the liveness of every blob server. Renters whose
// heartbeat window lapsed mid-test are re-registered under their old id.
func (st *serverTester) heartbeatAll(t *testing.T) {
	t.Helper()
	for i, bs := range st.blobServers {
		id := fmt.Sprintf("renter-%v", i)
		resp := st.postJSON(t, "/heartbeat/", map[string]interface{}{"renter_id": id})
		code := resp.StatusCode
		resp.Body.Close()
		if code == http.StatusNotFound {
			resp = st.postJSON(t, "/register-renter/", map[string]interface{}{
				"renter_id":         id,
				"url":               bs.srv.URL,
				"storage_available": 5 << 20,
			})
			resp.Body.Close()
			code = resp.StatusCode
		}
		if code != http.StatusOK {
			t.Fatalf("could not refresh renter-%v: status %v", i, code)
		}
	}
}

// decode reads a JSON response body into obj and closes it.
func decode(t *testing.T, resp *http.Response, obj interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(obj); err != nil {
		t.Fatal(err)
	}
}

// checkStatus drains a response and fails the test unless the status code
// matches.
func checkStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("expected status %v, got %v: %s", want, resp.StatusCode, body)
	}
}

// solveChallenge decrypts the nonce from a download challenge.
func solveChallenge(t *testing.T, key *rsa.PrivateKey, challenge modules.DownloadChallenge) string {
	t.Helper()
	encrypted, err := base64.StdEncoding.DecodeString(challenge.Challenge)
	if err != nil {
		t.Fatal(err)
	}
	nonce, err := crypto.DecryptOAEP(key, encrypted)
	if err != nil {
		t.Fatal(err)
	}
	return string(nonce)
}

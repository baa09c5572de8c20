package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ScatterLabs/Scatter/modules"

	"github.com/julienschmidt/httprouter"
)

type (
	// CoordinatorGET is the coordinator's health report.
	CoordinatorGET struct {
		Status          string `json:"status"`
		Message         string `json:"message"`
		LedgerConnected bool   `json:"ledger_connected"`
	}

	// RegisterRenterPOST is the response to a renter registration.
	RegisterRenterPOST struct {
		RenterID modules.RenterID `json:"renter_id"`
		Message  string           `json:"message"`
	}

	// HeartbeatPOST is the response to a heartbeat.
	HeartbeatPOST struct {
		Message string `json:"message"`
	}

	// RegisterPublicKeyPOST is the response to a key registration. The
	// coordinator's ledger address rides along when settlement is enabled,
	// so clients know where to send their top-ups.
	RegisterPublicKeyPOST struct {
		Status             string `json:"status"`
		CoordinatorAddress string `json:"coordinator_address,omitempty"`
	}

	// UploadPOST is the response to an upload.
	UploadPOST struct {
		Filename          string `json:"filename"`
		NumShards         int    `json:"num_shards"`
		ReplicationFactor int    `json:"replication_factor"`
		ShardSize         uint64 `json:"shard_size"`
		Message           string `json:"message"`
	}

	// DeletePOST is the response to a delete.
	DeletePOST struct {
		Message string `json:"message"`
	}

	// registerRenterRequest is the body of a renter registration.
	registerRenterRequest struct {
		RenterID         modules.RenterID  `json:"renter_id"`
		URL              modules.RenterURL `json:"url"`
		StorageAvailable uint64            `json:"storage_available"`
		LedgerAddress    string            `json:"blockchain_address"`
	}

	// heartbeatRequest is the body of a heartbeat.
	heartbeatRequest struct {
		RenterID      modules.RenterID `json:"renter_id"`
		LedgerAddress string           `json:"blockchain_address"`
	}

	// registerKeyRequest is the body of a key registration.
	registerKeyRequest struct {
		Username  string `json:"username"`
		PublicKey string `json:"public_key"`
	}

	// verifyRequest is the body of a challenge verification.
	verifyRequest struct {
		Response string `json:"response"`
	}
)

// coordinatorHandler handles the coordinator's health check.
func (srv *Server) coordinatorHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	writeJSON(w, CoordinatorGET{
		Status:          "healthy",
		Message:         "Distributed Storage Coordinator is running",
		LedgerConnected: srv.coordinator.LedgerConnected(),
	})
}

// registerRenterHandler handles the API call to register a renter.
func (srv *Server) registerRenterHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body registerRenterRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{Detail: "could not decode registration: " + err.Error()}, http.StatusBadRequest)
		return
	}
	id, err := srv.membership.RegisterRenter(body.RenterID, body.URL, body.StorageAvailable, body.LedgerAddress)
	if err != nil {
		writeModuleError(w, err)
		return
	}
	writeJSON(w, RegisterRenterPOST{
		RenterID: id,
		Message:  "Renter registered successfully",
	})
}

// heartbeatHandler handles the API call to refresh a renter's liveness.
func (srv *Server) heartbeatHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body heartbeatRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{Detail: "could not decode heartbeat: " + err.Error()}, http.StatusBadRequest)
		return
	}
	if err := srv.membership.Heartbeat(body.RenterID, body.LedgerAddress); err != nil {
		writeModuleError(w, err)
		return
	}
	writeJSON(w, HeartbeatPOST{Message: "Heartbeat received"})
}

// getRentersHandler handles the API call to list the live renters.
func (srv *Server) getRentersHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	writeJSON(w, srv.membership.Renters())
}

// registerPublicKeyHandler handles the API call to register a download key.
func (srv *Server) registerPublicKeyHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var body registerKeyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{Detail: "could not decode key registration: " + err.Error()}, http.StatusBadRequest)
		return
	}
	if body.Username == "" || body.PublicKey == "" {
		writeError(w, Error{Detail: "Username and public key are required"}, http.StatusBadRequest)
		return
	}
	if err := srv.coordinator.RegisterPublicKey(body.Username, body.PublicKey); err != nil {
		writeError(w, Error{Detail: err.Error()}, http.StatusBadRequest)
		return
	}
	writeJSON(w, RegisterPublicKeyPOST{
		Status:             "success",
		CoordinatorAddress: srv.coordinator.LedgerAddress(),
	})
}

// uploadHandler handles the API call to upload a file. The file arrives as
// multipart form data with a payment field.
func (srv *Server) uploadHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	payment, err := strconv.ParseFloat(req.FormValue("payment"), 64)
	if err != nil {
		writeError(w, Error{Detail: "payment must be a number"}, http.StatusBadRequest)
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		writeError(w, Error{Detail: "upload needs a file field: " + err.Error()}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	receipt, err := srv.coordinator.Upload(file, header.Filename, payment)
	if err != nil {
		writeModuleError(w, err)
		return
	}
	writeJSON(w, UploadPOST{
		Filename:          receipt.Filename,
		NumShards:         receipt.NumShards,
		ReplicationFactor: receipt.ReplicationFactor,
		ShardSize:         receipt.ShardSize,
		Message:           fmt.Sprintf("File uploaded and distributed successfully with replication factor %v", receipt.ReplicationFactor),
	})
}

// downloadHandler handles phase one of a download: reconstructing the file
// and issuing the challenge.
func (srv *Server) downloadHandler(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	username := req.URL.Query().Get("username")
	if username == "" {
		writeError(w, Error{Detail: "username is required"}, http.StatusBadRequest)
		return
	}
	challenge, err := srv.coordinator.Download(username, ps.ByName("filename"))
	if err != nil {
		writeModuleError(w, err)
		return
	}
	writeJSON(w, challenge)
}

// verifyChallengeHandler handles phase two of a download: checking the
// challenge response and streaming the file.
func (srv *Server) verifyChallengeHandler(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	// The username rides in the query so the body stays pure JSON.
	username := req.URL.Query().Get("username")
	if username == "" {
		writeError(w, Error{Detail: "username is required"}, http.StatusBadRequest)
		return
	}
	var body verifyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, Error{Detail: "could not decode challenge response: " + err.Error()}, http.StatusBadRequest)
		return
	}
	if body.Response == "" {
		writeError(w, Error{Detail: "Response is required"}, http.StatusBadRequest)
		return
	}

	filename := ps.ByName("filename")
	stream, err := srv.coordinator.VerifyChallenge(username, filename, body.Response)
	if err != nil {
		writeModuleError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	io.Copy(w, stream)
}

// deleteHandler handles the API call to delete a file and its shards.
func (srv *Server) deleteHandler(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	filename := ps.ByName("filename")
	if err := srv.coordinator.Delete(filename); err != nil {
		writeModuleError(w, err)
		return
	}
	writeJSON(w, DeletePOST{
		Message: fmt.Sprintf("File '%v' and all its shards deleted successfully", filename),
	})
}

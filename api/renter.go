package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/ScatterLabs/Scatter/modules"
)

type (
	// RenterGET is the renter's health report.
	RenterGET struct {
		Status        string            `json:"status"`
		Message       string            `json:"message"`
		RenterID      modules.RenterID  `json:"renter_id"`
		RenterURL     modules.RenterURL `json:"renter_url"`
		LedgerAddress string            `json:"blockchain_address,omitempty"`
		Shards        uint64            `json:"shards"`
	}

	// StoreShardPOST is the response to a shard store.
	StoreShardPOST struct {
		Message  string `json:"message"`
		Filename string `json:"filename"`
	}

	// DeleteShardPOST is the response to a shard delete.
	DeleteShardPOST struct {
		Message string `json:"message"`
	}
)

// renterHandler handles the renter's health check.
func (srv *Server) renterHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	count, err := srv.renter.ShardCount()
	if err != nil {
		writeModuleError(w, err)
		return
	}
	writeJSON(w, RenterGET{
		Status:        "healthy",
		Message:       "Distributed Storage Renter is running",
		RenterID:      srv.renter.ID(),
		RenterURL:     srv.renter.URL(),
		LedgerAddress: srv.renter.LedgerAddress(),
		Shards:        count,
	})
}

// storeShardHandler handles the API call to store a shard blob. The blob
// arrives as the multipart file field and is streamed straight into
// storage; shards can be larger than memory.
func (srv *Server) storeShardHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	reader, err := req.MultipartReader()
	if err != nil {
		writeError(w, Error{Detail: "store-shard needs multipart form data: " + err.Error()}, http.StatusBadRequest)
		return
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, Error{Detail: "could not read multipart body: " + err.Error()}, http.StatusBadRequest)
			return
		}
		if part.FormName() != "file" {
			continue
		}
		blobName := part.FileName()
		if err := srv.renter.StoreShard(blobName, part); err != nil {
			writeModuleError(w, err)
			return
		}
		writeJSON(w, StoreShardPOST{
			Message:  "Shard stored successfully",
			Filename: blobName,
		})
		return
	}
	writeError(w, Error{Detail: "store-shard needs a file field"}, http.StatusBadRequest)
}

// retrieveShardHandler handles the API call to stream a shard blob back.
func (srv *Server) retrieveShardHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	blobName := req.URL.Query().Get("filename")
	stream, size, err := srv.renter.RetrieveShard(blobName)
	if err != nil {
		writeModuleError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatUint(size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blobName))
	io.Copy(w, stream)
}

// deleteShardHandler handles the API call to delete a shard blob.
func (srv *Server) deleteShardHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	blobName := req.URL.Query().Get("filename")
	if err := srv.renter.DeleteShard(blobName); err != nil {
		writeError(w, Error{Detail: err.Error()}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, DeleteShardPOST{
		Message: fmt.Sprintf("Shard '%v' deleted successfully", blobName),
	})
}

package api

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ScatterLabs/Scatter/modules"

	"github.com/julienschmidt/httprouter"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/threadgroup"
)

// A Server hosts the HTTP surfaces of the modules it was given. A
// coordinator process passes membership and coordinator modules; a renter
// process passes a renter module.
type Server struct {
	membership  modules.Membership
	coordinator modules.Coordinator
	renter      modules.Renter

	apiServer *http.Server
	listener  net.Listener
	tg        threadgroup.ThreadGroup
}

// initAPI determines which functions handle each API call.
func (srv *Server) initAPI() {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(srv.unrecognizedCallHandler)

	if srv.coordinator != nil {
		router.GET("/", srv.coordinatorHandler)
		router.POST("/register-public-key/", srv.registerPublicKeyHandler)
		router.POST("/upload/", srv.uploadHandler)
		router.GET("/download/:filename", srv.downloadHandler)
		router.POST("/verify-challenge/:filename", srv.verifyChallengeHandler)
		router.POST("/delete/:filename", srv.deleteHandler)
	}

	if srv.membership != nil {
		router.POST("/register-renter/", srv.registerRenterHandler)
		router.POST("/heartbeat/", srv.heartbeatHandler)
		router.GET("/get-renters/", srv.getRentersHandler)
	}

	if srv.renter != nil {
		router.GET("/", srv.renterHandler)
		router.POST("/store-shard/", srv.storeShardHandler)
		router.GET("/retrieve-shard/", srv.retrieveShardHandler)
		router.POST("/delete-shard/", srv.deleteShardHandler)
	}

	srv.apiServer = &http.Server{Handler: router}
}

// unrecognizedCallHandler handles calls to unknown endpoints (404).
func (srv *Server) unrecognizedCallHandler(w http.ResponseWriter, req *http.Request) {
	writeError(w, Error{Detail: "no such endpoint"}, http.StatusNotFound)
}

// Addr returns the address the server's listener is bound to.
func (srv *Server) Addr() string {
	return srv.listener.Addr().String()
}

// Serve listens for and handles API calls. It is a blocking function.
func (srv *Server) Serve() error {
	err := srv.tg.Add()
	if err != nil {
		return errors.AddContext(err, "unable to initialize server")
	}
	defer srv.tg.Done()

	// Serving ends when the listener is closed, via either the Close method
	// or signal handling. Closing the listener produces the benign error
	// filtered below.
	err = srv.apiServer.Serve(srv.listener)
	if err != nil && !strings.HasSuffix(err.Error(), "use of closed network connection") && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close closes the Server's listener and safely closes each module the
// server was hosting.
func (srv *Server) Close() error {
	err := srv.tg.Stop()
	if err != nil {
		return errors.AddContext(err, "unable to close server")
	}

	var errs []error
	mods := []struct {
		name string
		c    io.Closer
	}{
		{"coordinator", srv.coordinator},
		{"renter", srv.renter},
		{"membership", srv.membership},
	}
	for _, mod := range mods {
		if mod.c != nil {
			if err := mod.c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%v.Close failed: %v", mod.name, err))
			}
		}
	}
	return errors.Compose(errs...)
}

// NewServer creates a server hosting the surfaces of the provided modules.
// Modules may be nil; their routes are simply not registered.
func NewServer(addr string, membership modules.Membership, coordinator modules.Coordinator, renter modules.Renter) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &Server{
		membership:  membership,
		coordinator: coordinator,
		renter:      renter,
		listener:    listener,
	}
	srv.tg.OnStop(func() error {
		return errors.AddContext(listener.Close(), "unable to close server listener")
	})
	srv.initAPI()
	return srv, nil
}

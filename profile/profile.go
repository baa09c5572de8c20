// Package profile provides hooks for capturing cpu profiles, memory
// profiles, and continuous runtime statistics from a running daemon. The
// scatterd daemon enables the continuous profiler with its --profile flag.
package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/ScatterLabs/Scatter/persist"

	"gitlab.com/NebulousLabs/errors"
)

// ErrCPUProfileRunning is returned when a cpu profile is started while
// another is still being recorded. The runtime supports only one active cpu
// profile per process.
var ErrCPUProfileRunning = errors.New("a cpu profile is already being recorded")

var (
	// mu serializes all profiling operations in the package.
	mu        sync.Mutex
	cpuActive bool
	cpuFile   *os.File
)

// timestamp returns the filename fragment that distinguishes consecutive
// profiles of the same kind.
func timestamp() string {
	return time.Now().Format("2006-01-02T15.04.05")
}

// StartCPUProfile starts recording a cpu profile into the profile directory.
// The identifier distinguishes profiles taken by different callers.
func StartCPUProfile(profileDir, identifier string) error {
	mu.Lock()
	defer mu.Unlock()
	if cpuActive {
		return ErrCPUProfileRunning
	}

	f, err := os.Create(filepath.Join(profileDir, "cpu-profile-"+identifier+"-"+timestamp()+".prof"))
	if err != nil {
		return errors.AddContext(err, "unable to create the cpu profile file")
	}
	err = pprof.StartCPUProfile(f)
	if err != nil {
		return errors.Compose(err, f.Close())
	}
	cpuActive = true
	cpuFile = f
	return nil
}

// StopCPUProfile stops the running cpu profile and flushes it to disk. It is
// a no-op if no profile is being recorded.
func StopCPUProfile() error {
	mu.Lock()
	defer mu.Unlock()
	if !cpuActive {
		return nil
	}
	pprof.StopCPUProfile()
	cpuActive = false
	err := cpuFile.Close()
	cpuFile = nil
	return err
}

// SaveMemProfile writes a snapshot of the current heap into the profile
// directory.
func SaveMemProfile(profileDir, identifier string) error {
	mu.Lock()
	defer mu.Unlock()

	f, err := os.Create(filepath.Join(profileDir, "mem-profile-"+identifier+"-"+timestamp()+".prof"))
	if err != nil {
		return errors.AddContext(err, "unable to create the mem profile file")
	}
	err = pprof.WriteHeapProfile(f)
	return errors.Compose(err, f.Close())
}

// StartContinuousProfile starts a goroutine that logs the goroutine count and
// memory statistics of the process. The interval between snapshots grows by
// half each iteration, which keeps the log small over a long daemon lifetime
// while still recording the startup behavior in detail.
func StartContinuousProfile(profileDir string) error {
	err := os.MkdirAll(profileDir, 0700)
	if err != nil {
		return errors.AddContext(err, "unable to create the profile directory")
	}
	log, err := persist.NewLogger(filepath.Join(profileDir, "profile.log"))
	if err != nil {
		return errors.AddContext(err, "unable to create the profile logger")
	}

	go func() {
		sleepTime := time.Second * 3
		for {
			time.Sleep(sleepTime)
			sleepTime = time.Duration(1.5 * float64(sleepTime))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			log.Printf("\n\tGoroutines: %v\n\tAlloc: %v\n\tTotalAlloc: %v\n\tHeapAlloc: %v\n\tHeapSys: %v\n", runtime.NumGoroutine(), m.Alloc, m.TotalAlloc, m.HeapAlloc, m.HeapSys)
		}
	}()
	return nil
}

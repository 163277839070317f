//go:build linux || darwin

package server

import (
	"errors"
	"net"
	"os"
	"strconv"
)

// listenFDsStart is SD_LISTEN_FDS_START.
const listenFDsStart = 3

var errNoActivatedSocket = errors.New("socket activation requested but no valid LISTEN_FDS")

// GetListener returns the socket handed over by systemd when
// SOCKET_ACTIVATION=1, and a plain TCP listener on addr otherwise.
func GetListener(addr string) (net.Listener, error) {
	if os.Getenv("SOCKET_ACTIVATION") != "1" {
		return net.Listen("tcp", addr)
	}
	if os.Getenv("LISTEN_FDS") != "1" {
		return nil, errNoActivatedSocket
	}
	// LISTEN_PID guards against inheriting another unit's descriptors.
	if pid, err := strconv.Atoi(os.Getenv("LISTEN_PID")); err != nil || pid != os.Getpid() {
		return nil, errNoActivatedSocket
	}
	f := os.NewFile(uintptr(listenFDsStart), "listener")
	if f == nil {
		return nil, errNoActivatedSocket
	}
	defer f.Close()
	return net.FileListener(f)
}

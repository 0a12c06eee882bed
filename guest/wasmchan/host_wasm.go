//go:build wasip1

package wasmchan

import (
	"errors"

	"github.com/reglet-dev/reglet-bridge/internal/abi"
)

//go:wasmimport wxbridge channel_installed
func hostChannelInstalled(name uint64) uint32

//go:wasmimport wxbridge channel_post
func hostChannelPost(name, frame uint64) uint64

var errNoReply = errors.New("host returned no reply")

type hostCaller struct{}

// Host returns the Caller backed by the wxbridge host module.
func Host() Caller { return hostCaller{} }

func (hostCaller) Installed(name string) bool {
	n := abi.PtrFromBytes([]byte(name))
	defer abi.DeallocatePacked(n)
	return hostChannelInstalled(n) != 0
}

func (hostCaller) Call(name string, frame []byte) ([]byte, error) {
	n := abi.PtrFromBytes([]byte(name))
	f := abi.PtrFromBytes(frame)
	defer abi.DeallocatePacked(n)
	defer abi.DeallocatePacked(f)

	reply := hostChannelPost(n, f)
	if reply == 0 || !abi.Valid(reply) {
		return nil, errNoReply
	}
	defer abi.DeallocatePacked(reply)
	return abi.BytesFromPtr(reply), nil
}

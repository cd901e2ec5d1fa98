//go:build windows

package wsearch

import (
	"context"
	"errors"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

const (
	hrSFalse         = 0x00000001
	hrRPCChangedMode = 0x80010106
	maxVTableEntries = 64
)

type comResult[T any] struct {
	val T
	err error
}

// runOnCOMThread runs fn on a dedicated OS thread with an initialized
// single-threaded apartment. COM calls cannot be interrupted, so when ctx
// ends first the call is abandoned: it finishes in the background and its
// result is dropped. fn must only return values, never write shared state.
func runOnCOMThread[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan comResult[T], 1)
	call := func() {
		v, err := fn()
		done <- comResult[T]{val: v, err: err}
	}

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
			var oleErr *ole.OleError
			switch {
			case errors.As(err, &oleErr) && oleErr.Code() == hrSFalse:
				// Already initialized on this thread; balance below.
			case errors.As(err, &oleErr) && oleErr.Code() == hrRPCChangedMode:
				// Initialized with another model; usable, but must not uninitialize.
				call()
				return
			default:
				done <- comResult[T]{err: dserrors.PlatformError(dserrors.ErrCodeCOMInit, "CoInitializeEx failed", err)}
				return
			}
		}
		defer ole.CoUninitialize()

		call()
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// invoke calls the method at index in obj's vtable with obj as the receiver.
func invoke(obj *ole.IUnknown, index int, args ...uintptr) uintptr {
	vtbl := (*[maxVTableEntries]uintptr)(unsafe.Pointer(obj.RawVTable))
	callArgs := append([]uintptr{uintptr(unsafe.Pointer(obj))}, args...)
	hr, _, _ := syscall.SyscallN(vtbl[index], callArgs...)
	return hr
}

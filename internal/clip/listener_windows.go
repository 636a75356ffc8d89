//go:build windows

package clip

// #cgo CFLAGS: -D_WIN32_WINNT=0x0600
// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
//
// static HWND recall_create_listener(void) {
//     WNDCLASSW wc = {0};
//     wc.lpfnWndProc   = DefWindowProcW;
//     wc.hInstance     = GetModuleHandleW(NULL);
//     wc.lpszClassName = L"RecallClipboardListener";
//     RegisterClassW(&wc);
//     HWND hwnd = CreateWindowExW(0, L"RecallClipboardListener", L"", 0,
//         0, 0, 0, 0, HWND_MESSAGE, NULL, wc.hInstance, NULL);
//     if (hwnd == NULL) {
//         return NULL;
//     }
//     if (!AddClipboardFormatListener(hwnd)) {
//         DestroyWindow(hwnd);
//         return NULL;
//     }
//     return hwnd;
// }
//
// // Blocks on the thread's message queue. Returns 1 on WM_CLIPBOARDUPDATE,
// // 0 on WM_QUIT and -1 on error.
// static int recall_wait_update(void) {
//     MSG msg;
//     for (;;) {
//         BOOL r = GetMessageW(&msg, NULL, 0, 0);
//         if (r == 0) {
//             return 0;
//         }
//         if (r == -1) {
//             return -1;
//         }
//         if (msg.message == WM_CLIPBOARDUPDATE) {
//             return 1;
//         }
//         TranslateMessage(&msg);
//         DispatchMessageW(&msg);
//     }
// }
//
// static void recall_destroy_listener(HWND hwnd) {
//     RemoveClipboardFormatListener(hwnd);
//     DestroyWindow(hwnd);
// }
//
// static void recall_quit(DWORD tid) {
//     PostThreadMessageW(tid, WM_QUIT, 0, 0);
// }
import "C"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// formatListener owns a message-only window registered with
// AddClipboardFormatListener. The window and its message loop live on one
// locked OS thread for the lifetime of Listen.
type formatListener struct{}

// NewListener returns the Windows clipboard change listener.
func NewListener() Listener { return &formatListener{} }

type loopStart struct {
	tid C.DWORD
	err error
}

func (l *formatListener) Listen(ctx context.Context, changed chan<- struct{}) error {
	started := make(chan loopStart, 1)
	done := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hwnd := C.recall_create_listener()
		if hwnd == nil {
			started <- loopStart{err: fmt.Errorf("%w: AddClipboardFormatListener failed", ErrListenerUnavailable)}
			return
		}
		defer C.recall_destroy_listener(hwnd)
		started <- loopStart{tid: C.GetCurrentThreadId()}

		slog.Debug("clipboard listener registered")
		done <- pump(changed)
	}()

	s := <-started
	if s.err != nil {
		return s.err
	}

	select {
	case <-ctx.Done():
		C.recall_quit(s.tid)
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// pump must run on the thread that created the listener window. It returns
// quickly after each notification so the OS never waits on us.
func pump(changed chan<- struct{}) error {
	for {
		switch C.recall_wait_update() {
		case 1:
			select {
			case changed <- struct{}{}:
			default:
			}
		case 0:
			return nil
		default:
			return errors.New("clipboard listener: GetMessage failed")
		}
	}
}

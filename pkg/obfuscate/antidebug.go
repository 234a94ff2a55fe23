// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package obfuscate

// antiDebugPrelude is prepended verbatim ahead of the (possibly already
// rewritten) source. It checks for an active trace hook on load and on
// a 5-second background cadence, and for a platform debugger flag where
// the host exposes one (ptrace on Linux via TracerPid, IsDebuggerPresent
// on Windows); either one triggers immediate termination.
const antiDebugPrelude = `import sys, os, threading, time as __forge_time

def __forge_check_trace_hook():
    return sys.gettrace() is not None

def __forge_check_vm_debugger():
    if sys.platform.startswith("linux"):
        try:
            with open("/proc/self/status") as __f:
                for __line in __f:
                    if __line.startswith("TracerPid:"):
                        return int(__line.split(":")[1].strip()) != 0
        except OSError:
            return False
    if sys.platform.startswith("win"):
        try:
            import ctypes
            return bool(ctypes.windll.kernel32.IsDebuggerPresent())
        except Exception:
            return False
    return False

def __forge_antidebug_check():
    if __forge_check_trace_hook() or __forge_check_vm_debugger():
        os._exit(1)

def __forge_antidebug_loop():
    while True:
        __forge_time.sleep(5)
        __forge_antidebug_check()

__forge_antidebug_check()
__forge_antidebug_thread = threading.Thread(target=__forge_antidebug_loop, daemon=True)
__forge_antidebug_thread.start()

`

// prependAntiDebugShim returns src with the anti-debug prelude
// prepended. It does not parse src: the prelude is self-contained and
// valid on its own, so prepending it ahead of any syntax tree keeps the
// combined file well-formed regardless of what earlier passes did.
func prependAntiDebugShim(src []byte) []byte {
	out := make([]byte, 0, len(antiDebugPrelude)+len(src))
	out = append(out, antiDebugPrelude...)
	out = append(out, src...)
	return out
}

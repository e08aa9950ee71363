package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dop251/goja"
)

// scenario runs a JavaScript file against a live session, with the
// surface and the host REST surface exposed as globals.
type scenario struct {
	vm      *goja.Runtime
	api     *apiClient
	surface *surface
	id      string
}

func newScenario(api *apiClient, surf *surface, sessionID string) (*scenario, error) {
	sc := &scenario{
		vm:      goja.New(),
		api:     api,
		surface: surf,
		id:      sessionID,
	}
	if err := sc.setupGlobals(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Run executes the script with a hard timeout enforced through the
// VM's interrupt.
func (sc *scenario) Run(path string, timeout time.Duration) error {
	script, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			sc.vm.Interrupt("scenario timeout exceeded")
		case <-done:
		}
	}()

	_, err = sc.vm.RunString(string(script))
	close(done)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", path, err)
	}
	return nil
}

// setupGlobals wires the script API. Failures inside the bindings are
// thrown as JavaScript exceptions so scripts can try/catch them.
func (sc *scenario) setupGlobals() error {
	vm := sc.vm

	// Remove dangerous globals
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	console := vm.NewObject()
	console.Set("log", sc.makeConsoleFunc("log"))
	console.Set("info", sc.makeConsoleFunc("info"))
	console.Set("warn", sc.makeConsoleFunc("warn"))
	console.Set("error", sc.makeConsoleFunc("error"))
	vm.Set("console", console)

	vm.Set("sleep", func(call goja.FunctionCall) goja.Value {
		ms := call.Argument(0).ToInteger()
		if ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		return goja.Undefined()
	})

	vm.Set("fail", func(call goja.FunctionCall) goja.Value {
		panic(vm.ToValue(call.Argument(0).String()))
	})

	surf := vm.NewObject()
	surf.Set("type", func(call goja.FunctionCall) goja.Value {
		sc.must(sc.surface.Type(call.Argument(0).String()))
		return goja.Undefined()
	})
	surf.Set("set", func(call goja.FunctionCall) goja.Value {
		sc.must(sc.surface.Set(call.Argument(0).String()))
		return goja.Undefined()
	})
	surf.Set("select", func(call goja.FunctionCall) goja.Value {
		start := int(call.Argument(0).ToInteger())
		end := int(call.Argument(1).ToInteger())
		sc.surface.Select(start, end)
		return goja.Undefined()
	})
	surf.Set("content", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(sc.surface.Content())
	})
	surf.Set("waitReplace", func(call goja.FunctionCall) goja.Value {
		ms := call.Argument(0).ToInteger()
		if ms <= 0 {
			ms = 2000
		}
		content, ok := sc.surface.WaitReplace(time.Duration(ms) * time.Millisecond)
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(content)
	})
	vm.Set("surface", surf)

	host := vm.NewObject()
	host.Set("get", func(call goja.FunctionCall) goja.Value {
		content, _, err := sc.api.GetContent(context.Background(), sc.id)
		sc.must(err)
		return vm.ToValue(content)
	})
	host.Set("put", func(call goja.FunctionCall) goja.Value {
		sc.must(sc.api.PutContent(context.Background(), sc.id, call.Argument(0).String()))
		return goja.Undefined()
	})
	host.Set("close", func(call goja.FunctionCall) goja.Value {
		sc.must(sc.api.CloseSession(context.Background(), sc.id))
		return goja.Undefined()
	})
	vm.Set("host", host)

	sessionObj := vm.NewObject()
	sessionObj.Set("id", sc.id)
	vm.Set("session", sessionObj)

	return nil
}

func (sc *scenario) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		log.Printf("scenario %s: %s", level, msg)
		return goja.Undefined()
	}
}

// must converts a Go error into a thrown JavaScript exception.
func (sc *scenario) must(err error) {
	if err != nil {
		panic(sc.vm.ToValue(err.Error()))
	}
}

package cloud

import (
	"fmt"
	"sort"

	"github.com/golang/glog"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

// Limits on registered functions.
const (
	MaxFunctions       = 15
	MaxFunctionNameLen = 12
)

// Functions is the registry of remotely-invokable functions.
type Functions struct {
	funcs map[string]func(string) int
}

// NewFunctions creates an empty registry.
func NewFunctions() *Functions {
	return &Functions{funcs: make(map[string]func(string) int)}
}

// Function registers fn under name.
func (f *Functions) Function(name string, fn func(string) int) error {
	if name == "" || len(name) > MaxFunctionNameLen {
		return fmt.Errorf("invalid function name %q", name)
	}
	if _, exist := f.funcs[name]; !exist && len(f.funcs) >= MaxFunctions {
		return fmt.Errorf("too many functions, %q not registered", name)
	}
	f.funcs[name] = fn
	return nil
}

// Names returns registered names in sorted order.
func (f *Functions) Names() []string {
	names := make([]string, 0, len(f.funcs))
	for name := range f.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke calls the function directly.
func (f *Functions) Invoke(name, arg string) (int, error) {
	fn, ok := f.funcs[name]
	if !ok {
		return 0, &ErrUnknownFunction{Name: name}
	}
	return fn(arg), nil
}

// Control implements Controller. It executes all queued calls.
func (f *Functions) Control(cc fx.ControlContext) error {
	var errs fx.AggregatedError
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		msg, ok := mctx.CurrentMessage().(*CallMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		call := msg.Call
		result, err := f.Invoke(call.Function(), call.Arg())
		if err != nil {
			glog.Warningf("call %s(%q): %v", call.Function(), call.Arg(), err)
			errs.Add(call.Fail(err))
			return
		}
		glog.V(1).Infof("call %s(%q) = %d", call.Function(), call.Arg(), result)
		errs.Add(call.Done(result))
	}))
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (f *Functions) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvControl, f)
}

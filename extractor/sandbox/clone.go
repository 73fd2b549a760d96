package sandbox

import (
	"math/big"
	"strconv"
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

// maxCloneLength bounds the length of a cloned array, holes included
const maxCloneLength = 1 << 20

// cloner structured-clones goja values into plain Go values. Cloning runs in Go where
// vm.Interrupt cannot reach it, so it gives up on its own once deadline passes.
type cloner struct {
	seen     map[*goja.Object]struct{}
	deadline time.Time
	visited  int
}

func newCloner(deadline time.Time) *cloner {
	return &cloner{seen: make(map[*goja.Object]struct{}), deadline: deadline}
}

// expired is checked every 1024 values
func (c *cloner) expired() bool {
	c.visited++
	if c.visited%1024 != 0 || c.deadline.IsZero() {
		return false
	}
	return time.Now().After(c.deadline)
}

// clone returns the Go value of v and whether v was defined
func (c *cloner) clone(v goja.Value) (interface{}, bool, error) {
	if c.expired() {
		return nil, false, errCloneTimeout
	}
	if v == nil || goja.IsUndefined(v) {
		return nil, false, nil
	}
	if goja.IsNull(v) {
		return nil, true, nil
	}
	if _, ok := v.(*goja.Symbol); ok {
		return nil, false, errors.New("Symbol could not be cloned")
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return primitive(v.Export()), true, nil
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return nil, false, errors.New("function could not be cloned")
	}
	if _, cyclic := c.seen[obj]; cyclic {
		return nil, false, errCyclic
	}
	c.seen[obj] = struct{}{}
	defer delete(c.seen, obj)

	switch obj.ClassName() {
	case "Array":
		length := obj.Get("length").ToInteger()
		if length > maxCloneLength {
			return nil, false, errors.Errorf("array of length %d could not be cloned", length)
		}
		out := make([]interface{}, length)
		for i := int64(0); i < length; i++ {
			val, _, err := c.clone(obj.Get(strconv.FormatInt(i, 10)))
			if err != nil {
				return nil, false, err
			}
			out[i] = val
		}
		return out, true, nil
	case "Date":
		if t, ok := obj.Export().(time.Time); ok {
			return t, true, nil
		}
		return time.Time{}, true, nil
	case "Error":
		return map[string]interface{}{
			"name":    obj.Get("name").String(),
			"message": obj.Get("message").String(),
		}, true, nil
	case "Boolean", "Number", "String":
		return primitive(obj.Export()), true, nil
	}

	out := make(map[string]interface{})
	for _, key := range obj.Keys() {
		val, defined, err := c.clone(obj.Get(key))
		if err != nil {
			return nil, false, err
		}
		if !defined {
			continue
		}
		out[key] = val
	}
	return out, true, nil
}

// primitive normalizes exported numbers to float64
func primitive(v interface{}) interface{} {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case float32:
		return float64(n)
	case *big.Int:
		return new(big.Int).Set(n)
	}
	return v
}

// copyValue deep copies a cloned value so each receiver owns its own
func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = copyValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	case *big.Int:
		return new(big.Int).Set(t)
	}
	return v
}

// toJS builds fresh page world values from a cloned value
func (p *Page) toJS(v interface{}) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Null()
	case map[string]interface{}:
		obj := p.vm.NewObject()
		for k, val := range t {
			obj.Set(k, p.toJS(val))
		}
		return obj
	case []interface{}:
		items := make([]interface{}, len(t))
		for i, val := range t {
			items[i] = p.toJS(val)
		}
		return p.vm.NewArray(items...)
	case time.Time:
		date, err := p.vm.New(p.vm.Get("Date"), p.vm.ToValue(t.UnixNano()/int64(time.Millisecond)))
		if err != nil {
			return goja.Null()
		}
		return date
	}
	return p.vm.ToValue(v)
}

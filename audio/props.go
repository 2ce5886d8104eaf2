package audio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var ErrUnknownProperty = errors.New("unknown property")

// Props stores device configuration that can be updated without locks on
// the read side. All properties should be registered before any reads take
// place.
type Props struct {
	mu         sync.RWMutex
	properties map[string]*atomic.Value
	setters    map[string]setter
}

func NewProps() *Props {
	return &Props{
		properties: make(map[string]*atomic.Value),
		setters:    make(map[string]setter),
	}
}

// Set updates the property with value. The key has to be registered first using Register.
func (p *Props) Set(key string, value interface{}) error {
	p.mu.RLock()
	prop, ok := p.properties[key]
	set := p.setters[key]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownProperty, key)
	}
	if err := set(value, prop); err != nil {
		return fmt.Errorf("set property %s: %w", key, err)
	}
	return nil
}

func (p *Props) Get(key string) (interface{}, error) {
	p.mu.RLock()
	prop, ok := p.properties[key]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownProperty, key)
	}
	return prop.Load(), nil
}

// Keys returns the registered property names in order.
func (p *Props) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.properties))
	for k := range p.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register adds a new property.
func (p *Props) Register(key string, set setter, init interface{}) (*atomic.Value, error) {
	var prop atomic.Value
	if err := set(init, &prop); err != nil {
		return nil, fmt.Errorf("register %s: %w", key, err)
	}
	p.mu.Lock()
	p.properties[key] = &prop
	p.setters[key] = set
	p.mu.Unlock()
	return &prop, nil
}

func (p *Props) MustRegister(key string, set setter, init interface{}) *atomic.Value {
	if prop, err := p.Register(key, set, init); err != nil {
		panic(err)
	} else {
		return prop
	}
}

type setter func(val interface{}, dest *atomic.Value) error

var (
	setEnvTime  = setFloat64(0, 60)
	setEnvLevel = setFloat64(0, 1)
	setLevel    = setFloat64(-60, 10)
	setPitch    = setInt(0, 127)
)

func setFloat64(min, max float64) setter {
	return func(v interface{}, dest *atomic.Value) error {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		default:
			return fmt.Errorf("value is not a number: %v", v)
		}
		if f < min || f > max {
			return fmt.Errorf("property value is not in valid range %v - %v: %v", min, max, f)
		}
		dest.Store(f)
		return nil
	}
}

func setInt(min, max int) setter {
	return func(v interface{}, dest *atomic.Value) error {
		var i int
		switch n := v.(type) {
		case float64:
			i = int(n)
		case int:
			i = n
		default:
			return fmt.Errorf("value is not an int: %v", v)
		}
		if i < min || i > max {
			return fmt.Errorf("property value is not in valid range %v - %v: %v", min, max, i)
		}
		dest.Store(i)
		return nil
	}
}

func setBool(v interface{}, dest *atomic.Value) error {
	switch b := v.(type) {
	case bool:
		dest.Store(b)
	case string:
		switch b {
		case "true", "on", "yes":
			dest.Store(true)
		case "false", "off", "no":
			dest.Store(false)
		default:
			return fmt.Errorf("value is not a bool: %v", v)
		}
	case int:
		dest.Store(b != 0)
	default:
		return fmt.Errorf("value is not a bool: %v", v)
	}
	return nil
}

func setString(v interface{}, dest *atomic.Value) error {
	if s, ok := v.(string); ok {
		dest.Store(s)
		return nil
	}
	return fmt.Errorf("value is not a string: %v", v)
}

package prepline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ProcessorFactory builds a processor from its decoded config parameters
// (everything in the config entry except processor_type).
type ProcessorFactory func(params map[string]any) (Processor, error)

// FilterFactory builds a filter from its decoded config parameters.
type FilterFactory func(params map[string]any) (Filter, error)

// DecodeParams decodes a step's parameter map into a typed config struct.
// Unknown keys are an error, so a misspelled option never passes silently.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

var (
	registryMu        sync.RWMutex
	processorRegistry = make(map[string]ProcessorFactory)
	filterRegistry    = make(map[string]FilterFactory)
)

// RegisterProcessor adds a processor factory under its processor_type tag.
// Called by processor implementations in their init() functions.
func RegisterProcessor(name string, factory ProcessorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	processorRegistry[name] = factory
}

// RegisterFilter adds a filter factory under its filter_type tag.
func RegisterFilter(name string, factory FilterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	filterRegistry[name] = factory
}

// Processors returns all registered processor type tags, sorted.
func Processors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(processorRegistry))
	for name := range processorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filters returns all registered filter type tags, sorted.
func Filters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(filterRegistry))
	for name := range filterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newProcessor(name string, params map[string]any) (Processor, error) {
	registryMu.RLock()
	factory, ok := processorRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown processor_type %q (registered: %v)", name, Processors())
	}
	return factory(params)
}

func newFilter(name string, params map[string]any) (Filter, error) {
	registryMu.RLock()
	factory, ok := filterRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown filter_type %q (registered: %v)", name, Filters())
	}
	return factory(params)
}

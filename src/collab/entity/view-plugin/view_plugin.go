package viewplugin

import (
	"context"
	"fmt"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
)

const (
	_errorUnrecognizedMethod = "%q included in priority config, but is not a recognized view method"
	_errorMissingMethod      = "%q is included in the priority configuration, but is nil in Methods"
	_errorMissingField       = "missing %q field for this plugin"
)

// View method names used as priority keys.
const (
	MethodCreate          = "create"
	MethodSelectionChange = "selectionChange"
	MethodDestroy         = "destroy"
)

// Priority represents the ranked priority in which a plugin method will be run for a given view event.
type Priority int64

const (
	// PriorityHigh for plugin methods that should run before every regular method.
	PriorityHigh Priority = iota
	// PriorityRegular for plugin methods that should run with regular priority.
	PriorityRegular
)

// Plugin defines an extension attached to one editor view.
type Plugin interface {
	StartupInfo(ctx context.Context) (PluginInfo, error)
}

// Methods defines the view events a plugin may optionally handle.
type Methods struct {
	// PluginNameKey identifies the name of the plugin that provides these method implementations.
	PluginNameKey string

	OnCreate          func(ctx context.Context) error
	OnSelectionChange func(ctx context.Context, selection entity.CursorPosition) error
	OnDestroy         func(ctx context.Context) error
}

// PluginInfo provides both prioritization for each method, as well as access to call each method implemented by this plugin.
type PluginInfo struct {
	Priorities map[string]Priority
	Methods    *Methods
	NameKey    string
}

// Validate provides runtime validation that a Plugin implementation returns valid PluginInfo.
func (m *PluginInfo) Validate() error {
	if len(m.Priorities) == 0 {
		return fmt.Errorf(_errorMissingField, "Priorities")
	} else if m.Methods == nil {
		return fmt.Errorf(_errorMissingField, "Methods")
	} else if m.NameKey == "" {
		return fmt.Errorf(_errorMissingField, "NameKey")
	} else if m.Methods.PluginNameKey != m.NameKey {
		return fmt.Errorf(_errorMissingField, "Methods.PluginNameKey")
	}

	for key := range m.Priorities {
		switch key {
		case MethodCreate:
			if m.Methods.OnCreate == nil {
				return fmt.Errorf(_errorMissingMethod, key)
			}
		case MethodSelectionChange:
			if m.Methods.OnSelectionChange == nil {
				return fmt.Errorf(_errorMissingMethod, key)
			}
		case MethodDestroy:
			if m.Methods.OnDestroy == nil {
				return fmt.Errorf(_errorMissingMethod, key)
			}
		default:
			return fmt.Errorf(_errorUnrecognizedMethod, key)
		}
	}
	return nil
}

// MethodLists groups plugin methods per view event, ordered by priority.
type MethodLists map[string][]*Methods

// BuildMethodLists validates each plugin and orders its methods by the priority declared for every view event.
// Plugins with equal priority keep their registration order.
func BuildMethodLists(infos []PluginInfo) (MethodLists, error) {
	result := MethodLists{}
	for _, priority := range []Priority{PriorityHigh, PriorityRegular} {
		for i := range infos {
			info := infos[i]
			if err := info.Validate(); err != nil {
				return nil, fmt.Errorf("plugin %q: %w", info.NameKey, err)
			}
			for method, p := range info.Priorities {
				if p == priority {
					result[method] = append(result[method], info.Methods)
				}
			}
		}
	}
	return result, nil
}

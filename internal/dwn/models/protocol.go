package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"

	dErrors "vctodwn/pkg/domain-errors"
)

// Action is an operation a protocol rule may permit.
type Action string

const (
	ActionCreate    Action = "create"
	ActionRead      Action = "read"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionQuery     Action = "query"
	ActionSubscribe Action = "subscribe"
	ActionCoDelete  Action = "co-delete"
	ActionCoUpdate  Action = "co-update"
)

var knownActions = []Action{
	ActionCreate, ActionRead, ActionUpdate, ActionDelete,
	ActionQuery, ActionSubscribe, ActionCoDelete, ActionCoUpdate,
}

// Who scopes an action rule to a class of actor.
type Who string

const (
	WhoAnyone    Who = "anyone"
	WhoAuthor    Who = "author"
	WhoRecipient Who = "recipient"
)

// ProtocolDefinition is a versioned, named schema: record types plus the
// authorization structure that maps roles and actors to permitted actions.
// The protocol URI is its identity.
type ProtocolDefinition struct {
	Protocol  string                  `json:"protocol"`
	Published bool                    `json:"published"`
	Types     map[string]ProtocolType `json:"types"`
	Structure map[string]RuleSet      `json:"structure"`

	// document key order of Types and Structure; nil when already sorted
	typeOrder      []string
	structureOrder []string
}

// definitionFields decodes the plain fields without recursing into
// ProtocolDefinition.UnmarshalJSON.
type definitionFields struct {
	Protocol  string                  `json:"protocol"`
	Published bool                    `json:"published"`
	Types     map[string]ProtocolType `json:"types"`
	Structure map[string]RuleSet      `json:"structure"`
}

// MarshalJSON keeps the key order the definition was decoded with. Definitions
// built in code are written in key order.
func (d ProtocolDefinition) MarshalJSON() ([]byte, error) {
	var obj orderedObject
	if err := obj.write("protocol", d.Protocol); err != nil {
		return nil, err
	}
	if err := obj.write("published", d.Published); err != nil {
		return nil, err
	}
	types, err := marshalOrdered(d.Types, d.typeOrder)
	if err != nil {
		return nil, err
	}
	obj.writeRaw("types", types)
	structure, err := marshalOrdered(d.Structure, d.structureOrder)
	if err != nil {
		return nil, err
	}
	obj.writeRaw("structure", structure)
	return obj.close(), nil
}

func (d *ProtocolDefinition) UnmarshalJSON(data []byte) error {
	var fields definitionFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw struct {
		Types     json.RawMessage `json:"types"`
		Structure json.RawMessage `json:"structure"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typeOrder, err := objectKeys(raw.Types)
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	structureOrder, err := objectKeys(raw.Structure)
	if err != nil {
		return fmt.Errorf("structure: %w", err)
	}
	*d = ProtocolDefinition{
		Protocol:       fields.Protocol,
		Published:      fields.Published,
		Types:          fields.Types,
		Structure:      fields.Structure,
		typeOrder:      documentOrder(typeOrder),
		structureOrder: documentOrder(structureOrder),
	}
	return nil
}

// ProtocolType declares the schema and data formats of one record type.
type ProtocolType struct {
	Schema      string   `json:"schema,omitempty"`
	DataFormats []string `json:"dataFormats,omitempty"`
}

// ActionRule grants the actions in Can to either an actor class (Who) or a
// protocol role (Role). Of narrows "author"/"recipient" to records at that path.
type ActionRule struct {
	Who  Who      `json:"who,omitempty"`
	Role string   `json:"role,omitempty"`
	Of   string   `json:"of,omitempty"`
	Can  []Action `json:"can"`
}

// RuleSet is one node of the protocol structure. Keys starting with "$" are
// directives; every other key is a nested record type.
type RuleSet struct {
	Role     bool
	Actions  []ActionRule
	Children map[string]RuleSet
	// Other directives ($size, $tags, ...) are kept verbatim.
	Directives map[string]json.RawMessage

	// document order of Children; nil when already sorted
	childOrder []string
}

// MarshalJSON writes directives first, then children in document order.
func (r RuleSet) MarshalJSON() ([]byte, error) {
	var obj orderedObject
	if r.Role {
		if err := obj.write("$role", true); err != nil {
			return nil, err
		}
	}
	if len(r.Actions) > 0 {
		if err := obj.write("$actions", r.Actions); err != nil {
			return nil, err
		}
	}
	for _, key := range sortedKeys(r.Directives) {
		obj.writeRaw(key, r.Directives[key])
	}
	for _, key := range orderedKeys(r.Children, r.childOrder) {
		if err := obj.write(key, r.Children[key]); err != nil {
			return nil, err
		}
	}
	return obj.close(), nil
}

// UnmarshalJSON splits directives from nested rule sets.
func (r *RuleSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	out := RuleSet{}
	var children []string
	for _, key := range keys {
		value := raw[key]
		switch {
		case key == "$role":
			if err := json.Unmarshal(value, &out.Role); err != nil {
				return fmt.Errorf("$role: %w", err)
			}
		case key == "$actions":
			if err := json.Unmarshal(value, &out.Actions); err != nil {
				return fmt.Errorf("$actions: %w", err)
			}
		case strings.HasPrefix(key, "$"):
			if out.Directives == nil {
				out.Directives = make(map[string]json.RawMessage)
			}
			out.Directives[key] = value
		default:
			var child RuleSet
			if err := json.Unmarshal(value, &child); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if out.Children == nil {
				out.Children = make(map[string]RuleSet)
			}
			out.Children[key] = child
			children = append(children, key)
		}
	}
	out.childOrder = documentOrder(children)
	*r = out
	return nil
}

// RuleSetAt resolves a slash separated protocol path such as "issuer" or
// "thread/reply".
func (d ProtocolDefinition) RuleSetAt(path string) (RuleSet, bool) {
	segments := strings.Split(path, "/")
	level := d.Structure
	var current RuleSet
	for _, seg := range segments {
		rs, ok := level[seg]
		if !ok {
			return RuleSet{}, false
		}
		current = rs
		level = rs.Children
	}
	return current, true
}

// Paths lists every protocol path in the structure, parents before children.
func (d ProtocolDefinition) Paths() []string {
	var out []string
	var walk func(prefix string, level map[string]RuleSet)
	walk = func(prefix string, level map[string]RuleSet) {
		for _, key := range sortedKeys(level) {
			path := key
			if prefix != "" {
				path = prefix + "/" + key
			}
			out = append(out, path)
			walk(path, level[key].Children)
		}
	}
	walk("", d.Structure)
	return out
}

// TypeAt returns the record type declared for the last segment of path.
func (d ProtocolDefinition) TypeAt(path string) (ProtocolType, bool) {
	segments := strings.Split(path, "/")
	t, ok := d.Types[segments[len(segments)-1]]
	return t, ok
}

// Validate checks the definition is self-consistent. It is run on every
// definition loaded from configuration, before anything reaches a store.
func (d ProtocolDefinition) Validate() error {
	if strings.TrimSpace(d.Protocol) == "" {
		return dErrors.New(dErrors.CodeValidation, "protocol URI is required")
	}
	if u, err := url.Parse(d.Protocol); err != nil || u.Scheme == "" {
		return dErrors.New(dErrors.CodeValidation, "protocol must be an absolute URI")
	}
	if len(d.Structure) == 0 {
		return dErrors.New(dErrors.CodeValidation, "protocol structure is empty")
	}

	paths := d.Paths()
	roles := make(map[string]bool)
	for _, path := range paths {
		if _, ok := d.TypeAt(path); !ok {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("structure path %q has no declared type", path))
		}
		rs, _ := d.RuleSetAt(path)
		if rs.Role {
			roles[path] = true
		}
	}

	for _, path := range paths {
		rs, _ := d.RuleSetAt(path)
		for i, rule := range rs.Actions {
			if err := validateRule(rule, roles, paths); err != nil {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s $actions[%d]: %s", path, i, err.Error()))
			}
		}
	}
	return nil
}

func validateRule(rule ActionRule, roles map[string]bool, paths []string) error {
	switch {
	case rule.Who == "" && rule.Role == "":
		return fmt.Errorf("one of who or role is required")
	case rule.Who != "" && rule.Role != "":
		return fmt.Errorf("who and role are mutually exclusive")
	}
	if rule.Who != "" && rule.Who != WhoAnyone && rule.Who != WhoAuthor && rule.Who != WhoRecipient {
		return fmt.Errorf("unknown who %q", rule.Who)
	}
	if rule.Role != "" && !roles[rule.Role] {
		return fmt.Errorf("role %q is not a $role path", rule.Role)
	}
	if rule.Of != "" {
		if rule.Who == WhoAnyone {
			return fmt.Errorf("of cannot be combined with who=anyone")
		}
		if !slices.Contains(paths, rule.Of) {
			return fmt.Errorf("of %q is not a structure path", rule.Of)
		}
	}
	if len(rule.Can) == 0 {
		return fmt.Errorf("can must list at least one action")
	}
	for _, action := range rule.Can {
		if !slices.Contains(knownActions, action) {
			return fmt.Errorf("unknown action %q", action)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

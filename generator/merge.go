package generator

import (
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/config"
)

// mergeIni applies op to the value list of key inside a generated ini section.
// Values compare exactly; *= inserts at *prependAt and advances it.
func mergeIni(sec *config.Section, key string, op config.Operator, value string, prependAt *int) {
	switch op {
	case config.OpSet:
		sec.Set(key, value, config.OpSet)
	case config.OpSetIfEmpty:
		if sec.GetString(key, "") == "" {
			sec.Set(key, value, config.OpSet)
		}
	case config.OpClear, config.OpClearAlt:
		sec.RemoveKey(key)
	case config.OpAppendRaw:
		sec.Add(key, value, config.OpSet)
	case config.OpAppend:
		if !sec.Contains(key, value) {
			sec.Add(key, value, config.OpSet)
		}
	case config.OpPrepend:
		if !sec.Contains(key, value) {
			sec.Insert(key, value, *prependAt, config.OpSet)
			*prependAt++
		}
	case config.OpRemove:
		sec.Remove(key, value)
	}
}

// mergeList applies op to a comma-separated list value such as a connection parameter or a variable.
// = and ?= treat value as a whole; the other operators work item by item.
// It returns the new value and whether the key still exists.
func mergeList(old string, exists bool, op config.Operator, value string, prependAt *int) (string, bool) {
	switch op {
	case config.OpSet:
		return value, true

	case config.OpSetIfEmpty:
		if exists && old != "" {
			return old, true
		}
		return value, true

	case config.OpClear, config.OpClearAlt:
		return "", false

	case config.OpAppendRaw:
		if !exists || old == "" {
			return value, true
		}
		return old + "," + value, true

	case config.OpAppend:
		items := listItems(old)
		for _, v := range listItems(value) {
			if !containsItem(items, v) {
				items = append(items, v)
			}
		}
		return strings.Join(items, ","), true

	case config.OpPrepend:
		items := listItems(old)
		pos := min(*prependAt, len(items))
		for _, v := range listItems(value) {
			if containsItem(items, v) {
				continue
			}
			items = append(items, "")
			copy(items[pos+1:], items[pos:])
			items[pos] = v
			pos++
		}
		*prependAt = pos
		return strings.Join(items, ","), true

	case config.OpRemove:
		if !exists {
			return old, false
		}
		remove := listItems(value)
		var kept []string
		for _, item := range listItems(old) {
			if !containsItem(remove, item) {
				kept = append(kept, item)
			}
		}
		return strings.Join(kept, ","), true
	}
	return old, exists
}

// listItems splits a quote-aware comma list, dropping empty items
func listItems(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var items []string
	for _, item := range config.SplitUnquoted(s, ',') {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func containsItem(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

// mergeCmdLine applies op to the space-separated command line.
// += and *= skip arguments that are already present as whole tokens; -= removes a substring.
func mergeCmdLine(cmd string, op config.Operator, value string) string {
	switch op {
	case config.OpSet:
		return value
	case config.OpSetIfEmpty:
		if strings.TrimSpace(cmd) == "" {
			return value
		}
		return cmd
	case config.OpClear, config.OpClearAlt:
		return ""
	case config.OpAppendRaw:
		return strings.TrimSpace(cmd + " " + value)
	case config.OpAppend:
		if hasArgument(cmd, value) {
			return cmd
		}
		return strings.TrimSpace(cmd + " " + value)
	case config.OpPrepend:
		if hasArgument(cmd, value) {
			return cmd
		}
		return strings.TrimSpace(value + " " + cmd)
	case config.OpRemove:
		if value == "" {
			return cmd
		}
		cmd = strings.ReplaceAll(cmd, value, "")
		for strings.Contains(cmd, "  ") {
			cmd = strings.ReplaceAll(cmd, "  ", " ")
		}
		return strings.TrimSpace(cmd)
	}
	return cmd
}

// hasArgument reports whether arg occurs in cmd as a run of whole tokens
func hasArgument(cmd, arg string) bool {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return true
	}
	return strings.Contains(" "+cmd+" ", " "+arg+" ")
}

// mergeToggle evaluates a boolean directive; clearing turns it off and an empty value keeps current
func mergeToggle(current bool, op config.Operator, value string) bool {
	if op.Clears() || op == config.OpRemove {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return current
	}
	return v != "0" && v != "false"
}

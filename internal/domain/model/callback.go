package model

import (
	"strconv"
	"strings"
)

// CallbackKind tags the variant of an inline-button callback.
type CallbackKind int

const (
	CallbackUnknown CallbackKind = iota
	CallbackToggle
	CallbackPickTime
	CallbackSetTime
	CallbackPickTz
	CallbackSetTz
	CallbackReflect
	CallbackBack
)

// CallbackAction is the decoded form of callback_data. Only the fields relevant
// to Kind are set.
type CallbackAction struct {
	Kind       CallbackKind
	Slot       Slot
	Hour       int
	Zone       string
	Reflection Reflection
}

// Wire format (Telegram limits callback_data to 64 bytes):
//
//	set:toggle:<slot>
//	set:time:<slot>
//	set:hour:<slot>:<0..23>
//	set:tz
//	set:zone:<IANA zone>
//	set:back
//	reflect:<hard|ok|easy>
const (
	cbSettingsPrefix = "set"
	cbReflectPrefix  = "reflect"
)

func ToggleAction(s Slot) CallbackAction { return CallbackAction{Kind: CallbackToggle, Slot: s} }
func PickTimeAction(s Slot) CallbackAction {
	return CallbackAction{Kind: CallbackPickTime, Slot: s}
}
func SetTimeAction(s Slot, hour int) CallbackAction {
	return CallbackAction{Kind: CallbackSetTime, Slot: s, Hour: hour}
}
func PickTzAction() CallbackAction           { return CallbackAction{Kind: CallbackPickTz} }
func SetTzAction(zone string) CallbackAction { return CallbackAction{Kind: CallbackSetTz, Zone: zone} }
func ReflectAction(r Reflection) CallbackAction {
	return CallbackAction{Kind: CallbackReflect, Reflection: r}
}
func BackAction() CallbackAction { return CallbackAction{Kind: CallbackBack} }

// Data encodes the action into callback_data.
func (a CallbackAction) Data() string {
	switch a.Kind {
	case CallbackToggle:
		return cbSettingsPrefix + ":toggle:" + string(a.Slot)
	case CallbackPickTime:
		return cbSettingsPrefix + ":time:" + string(a.Slot)
	case CallbackSetTime:
		return cbSettingsPrefix + ":hour:" + string(a.Slot) + ":" + strconv.Itoa(a.Hour)
	case CallbackPickTz:
		return cbSettingsPrefix + ":tz"
	case CallbackSetTz:
		return cbSettingsPrefix + ":zone:" + a.Zone
	case CallbackBack:
		return cbSettingsPrefix + ":back"
	case CallbackReflect:
		return cbReflectPrefix + ":" + string(a.Reflection)
	}
	return ""
}

// ParseCallback decodes callback_data. ok is false for anything unrecognised.
func ParseCallback(data string) (CallbackAction, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 2 {
		return CallbackAction{}, false
	}
	switch parts[0] {
	case cbReflectPrefix:
		if len(parts) != 2 {
			return CallbackAction{}, false
		}
		r, ok := ParseReflection(parts[1])
		if !ok {
			return CallbackAction{}, false
		}
		return ReflectAction(r), true
	case cbSettingsPrefix:
		return parseSettingsCallback(parts[1:])
	}
	return CallbackAction{}, false
}

func parseSettingsCallback(parts []string) (CallbackAction, bool) {
	switch parts[0] {
	case "back":
		if len(parts) == 1 {
			return BackAction(), true
		}
	case "tz":
		if len(parts) == 1 {
			return PickTzAction(), true
		}
	case "zone":
		// zone names contain '/', never ':'
		if len(parts) == 2 && isSupportedTimezone(parts[1]) {
			return SetTzAction(parts[1]), true
		}
	case "toggle", "time":
		if len(parts) != 2 {
			break
		}
		slot, ok := ParseSlot(parts[1])
		if !ok {
			break
		}
		if parts[0] == "toggle" {
			return ToggleAction(slot), true
		}
		return PickTimeAction(slot), true
	case "hour":
		if len(parts) != 3 {
			break
		}
		slot, ok := ParseSlot(parts[1])
		if !ok {
			break
		}
		hour, err := strconv.Atoi(parts[2])
		if err != nil || hour < 0 || hour > 23 {
			break
		}
		return SetTimeAction(slot, hour), true
	}
	return CallbackAction{}, false
}

func isSupportedTimezone(zone string) bool {
	for _, z := range SupportedTimezones {
		if z == zone {
			return true
		}
	}
	return false
}

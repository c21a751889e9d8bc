// Package events implements the NUT event pipeline. It accepts either
// the standard "<ups@host> <EVENT_TYPE>" invocation NUT's NOTIFYCMD uses or
// a legacy free-text message, classifies it into the closed event
// taxonomy, persists the resulting state transition, and fans out
// notifications across every configured channel.
package events

import "regexp"

// Closed event taxonomy. Types outside this set are still
// accepted and stored verbatim, but carry no notification enablement.
const (
	EventOnline   = "ONLINE"
	EventOnBatt   = "ONBATT"
	EventLowBatt  = "LOWBATT"
	EventCommBad  = "COMMBAD"
	EventCommOK   = "COMMOK"
	EventShutdown = "SHUTDOWN"
	EventReplBatt = "REPLBATT"
	EventNoComm   = "NOCOMM"
	EventNoParent = "NOPARENT"
	EventFSD      = "FSD"
	EventCal      = "CAL"
	EventTrim     = "TRIM"
	EventBoost    = "BOOST"
	EventOff      = "OFF"
	EventOverload = "OVERLOAD"
	EventBypass   = "BYPASS"
	EventNoBatt   = "NOBATT"
	EventDataOld  = "DATAOLD"
)

// KnownEventTypes is the closed set an incoming event type is checked
// against purely for documentation/validation purposes; unknown types are
// still accepted.
var KnownEventTypes = map[string]bool{
	EventOnline: true, EventOnBatt: true, EventLowBatt: true,
	EventCommBad: true, EventCommOK: true, EventShutdown: true,
	EventReplBatt: true, EventNoComm: true, EventNoParent: true,
	EventFSD: true, EventCal: true, EventTrim: true, EventBoost: true,
	EventOff: true, EventOverload: true, EventBypass: true,
	EventNoBatt: true, EventDataOld: true,
}

// pairCategories maps an event type to the set of event types that close
// an open interval it opened, or vice-versa: ONBATT↔ONLINE,
// COMMBAD↔COMMOK, and NOCOMM closing on COMMOK as well.
var pairCategories = map[string][]string{
	EventOnBatt:  {EventOnline},
	EventOnline:  {EventOnBatt},
	EventCommBad: {EventCommOK},
	EventNoComm:  {EventCommOK},
	EventCommOK:  {EventCommBad, EventNoComm},
}

// PairTypesFor returns the event types that an incoming event of eventType
// should close. Returns nil for types with no pairing relationship.
func PairTypesFor(eventType string) []string {
	return pairCategories[eventType]
}

// classifierRule is one row of the legacy free-text classification table.
// Kept as data, not inlined branching, so the table stays testable row by
// row.
type classifierRule struct {
	pattern   *regexp.Regexp
	eventType string
}

// legacyRules is compiled once at package init. Order is priority: first
// match wins.
var legacyRules = []classifierRule{
	{regexp.MustCompile(`Communications with UPS (\S+) lost`), EventCommBad},
	{regexp.MustCompile(`Communications restored with UPS (\S+)`), EventCommOK},
	{regexp.MustCompile(`No communication with UPS (\S+)`), EventNoComm},
	{regexp.MustCompile(`Parent process died.*UPS (\S+)`), EventNoParent},
	{regexp.MustCompile(`System was shutdown by UPS (\S+)`), EventShutdown},
	{regexp.MustCompile(`^UPS (\S+) on battery`), EventOnBatt},
	{regexp.MustCompile(`^UPS (\S+) on line power`), EventOnline},
	{regexp.MustCompile(`^UPS (\S+) online`), EventOnline},
	{regexp.MustCompile(`^UPS (\S+) low battery`), EventLowBatt},
	{regexp.MustCompile(`^UPS (\S+) forced shutdown`), EventFSD},
	{regexp.MustCompile(`^UPS (\S+) battery needs replacing`), EventReplBatt},
}

// ClassifyLegacy runs the regex table against a free-text message and
// returns the recovered (ups_name, event_type), in table order, first
// match wins. ok is false if no rule matched.
func ClassifyLegacy(message string) (upsName, eventType string, ok bool) {
	for _, rule := range legacyRules {
		if m := rule.pattern.FindStringSubmatch(message); m != nil {
			return m[1], rule.eventType, true
		}
	}
	return "", "", false
}

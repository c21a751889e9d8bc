package events

import "testing"

func TestClassifyLegacyOnBattery(t *testing.T) {
	ups, eventType, ok := ClassifyLegacy("UPS office@localhost on battery")
	if !ok {
		t.Fatal("expected match")
	}
	if ups != "office@localhost" || eventType != EventOnBatt {
		t.Errorf("got ups=%q eventType=%q, want office@localhost/%s", ups, eventType, EventOnBatt)
	}
}

func TestClassifyLegacyOnLinePower(t *testing.T) {
	_, eventType, ok := ClassifyLegacy("UPS office@localhost on line power")
	if !ok || eventType != EventOnline {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventOnline)
	}
}

func TestClassifyLegacyOnlineWord(t *testing.T) {
	_, eventType, ok := ClassifyLegacy("UPS office@localhost online")
	if !ok || eventType != EventOnline {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventOnline)
	}
}

func TestClassifyLegacyCommunicationsLost(t *testing.T) {
	_, eventType, ok := ClassifyLegacy("Communications with UPS office@localhost lost")
	if !ok || eventType != EventCommBad {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventCommBad)
	}
}

func TestClassifyLegacyCommunicationsRestored(t *testing.T) {
	_, eventType, ok := ClassifyLegacy("Communications restored with UPS office@localhost")
	if !ok || eventType != EventCommOK {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventCommOK)
	}
}

func TestClassifyLegacyNoCommunication(t *testing.T) {
	_, eventType, ok := ClassifyLegacy("No communication with UPS office@localhost")
	if !ok || eventType != EventNoComm {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventNoComm)
	}
}

func TestClassifyLegacyLowBattery(t *testing.T) {
	_, eventType, ok := ClassifyLegacy("UPS rack1@host1 low battery")
	if !ok || eventType != EventLowBatt {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventLowBatt)
	}
}

func TestClassifyLegacyNoMatch(t *testing.T) {
	_, _, ok := ClassifyLegacy("this message matches nothing in the taxonomy")
	if ok {
		t.Error("expected no match")
	}
}

func TestClassifyLegacyFirstRulePriority(t *testing.T) {
	// Communications-lost must win over the generic no-communication rule
	// for a message that matches both phrasings.
	_, eventType, ok := ClassifyLegacy("Communications with UPS rack1@host1 lost; No communication with UPS rack1@host1")
	if !ok || eventType != EventCommBad {
		t.Errorf("got eventType=%q ok=%v, want %s/true", eventType, ok, EventCommBad)
	}
}

func TestPairTypesForKnownPairs(t *testing.T) {
	cases := map[string][]string{
		EventOnBatt:  {EventOnline},
		EventOnline:  {EventOnBatt},
		EventCommBad: {EventCommOK},
		EventCommOK:  {EventCommBad, EventNoComm},
		EventNoComm:  {EventCommOK},
	}
	for eventType, want := range cases {
		got := PairTypesFor(eventType)
		if len(got) != len(want) {
			t.Errorf("PairTypesFor(%s) = %v, want %v", eventType, got, want)
			continue
		}
		seen := make(map[string]bool, len(got))
		for _, v := range got {
			seen[v] = true
		}
		for _, w := range want {
			if !seen[w] {
				t.Errorf("PairTypesFor(%s) = %v, missing %s", eventType, got, w)
			}
		}
	}
}

func TestPairTypesForUnknownEvent(t *testing.T) {
	if got := PairTypesFor(EventShutdown); len(got) != 0 {
		t.Errorf("PairTypesFor(%s) = %v, want empty", EventShutdown, got)
	}
}

func TestKnownEventTypesContainsFullTaxonomy(t *testing.T) {
	want := []string{
		EventOnline, EventOnBatt, EventLowBatt, EventCommBad, EventCommOK,
		EventShutdown, EventReplBatt, EventNoComm, EventNoParent, EventFSD,
		EventCal, EventTrim, EventBoost, EventOff, EventOverload, EventBypass,
		EventNoBatt, EventDataOld,
	}
	for _, eventType := range want {
		if !KnownEventTypes[eventType] {
			t.Errorf("KnownEventTypes missing %s", eventType)
		}
	}
	if len(KnownEventTypes) != len(want) {
		t.Errorf("KnownEventTypes has %d entries, want %d", len(KnownEventTypes), len(want))
	}
}

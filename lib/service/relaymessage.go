package service

import (
	"encoding/json"
	"time"
)

// RelayState is the in-memory protocol state of one relay connection,
// updated from raw relay frames and exposed by the status API.
type RelayState struct {
	Uri               string    `json:"uri"`
	LastMessageAt     time.Time `json:"last_message_at"`
	LastOKEventID     string    `json:"last_ok_event_id,omitempty"`
	LastOKAccepted    bool      `json:"last_ok_accepted"`
	LastNotice        string    `json:"last_notice,omitempty"`
	LastAuthChallenge string    `json:"-"`
	LastEOSEAt        time.Time `json:"last_eose_at,omitempty"`
}

// HandleRelayMessage parses a raw relay protocol frame (OK, NOTICE, EOSE,
// CLOSED, AUTH). Frames arrive via IngestionQueue.EnqueueRelayMessage from
// embedding relay layers; the built-in pool's SimplePool handles them
// internally and does not forward them. Unknown or malformed frames are
// logged and dropped; a relay speaking a newer protocol dialect must not
// stall the pipeline.
func (svc *HushhubService) HandleRelayMessage(relayUri string, payload []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(payload, &frame); err != nil || len(frame) == 0 {
		svc.Logger.Warnf("Unparseable relay frame from %s: %.120s", relayUri, payload)
		return
	}

	var label string
	if err := json.Unmarshal(frame[0], &label); err != nil {
		svc.Logger.Warnf("Relay frame from %s has a non-string label", relayUri)
		return
	}

	svc.relayMu.Lock()
	defer svc.relayMu.Unlock()
	state := svc.relayStates[relayUri]
	if state == nil {
		state = &RelayState{Uri: relayUri}
		svc.relayStates[relayUri] = state
	}
	state.LastMessageAt = time.Now()

	switch label {
	case "OK":
		var eventID string
		var accepted bool
		if len(frame) >= 3 {
			json.Unmarshal(frame[1], &eventID)
			json.Unmarshal(frame[2], &accepted)
		}
		state.LastOKEventID = eventID
		state.LastOKAccepted = accepted
		if !accepted {
			reason := ""
			if len(frame) >= 4 {
				json.Unmarshal(frame[3], &reason)
			}
			svc.Logger.Warnf("Relay %s rejected event %s: %s", relayUri, eventID, reason)
		}
	case "NOTICE":
		var notice string
		if len(frame) >= 2 {
			json.Unmarshal(frame[1], &notice)
		}
		state.LastNotice = notice
		svc.Logger.Warnf("Notice from relay %s: %s", relayUri, notice)
	case "EOSE":
		state.LastEOSEAt = time.Now()
		svc.Logger.Debugf("End of stored events from relay %s", relayUri)
	case "CLOSED":
		var subID, reason string
		if len(frame) >= 2 {
			json.Unmarshal(frame[1], &subID)
		}
		if len(frame) >= 3 {
			json.Unmarshal(frame[2], &reason)
		}
		svc.Logger.Warnf("Relay %s closed subscription %s: %s", relayUri, subID, reason)
	case "AUTH":
		var challenge string
		if len(frame) >= 2 {
			json.Unmarshal(frame[1], &challenge)
		}
		state.LastAuthChallenge = challenge
		svc.Logger.Infof("Auth challenge from relay %s", relayUri)
	default:
		svc.Logger.Debugf("Ignoring %s frame from relay %s", label, relayUri)
	}
}

// RelayStates returns a snapshot of all tracked relay states.
func (svc *HushhubService) RelayStates() []RelayState {
	svc.relayMu.RLock()
	defer svc.relayMu.RUnlock()
	states := make([]RelayState, 0, len(svc.relayStates))
	for _, state := range svc.relayStates {
		states = append(states, *state)
	}
	return states
}

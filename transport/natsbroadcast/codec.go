package natsbroadcast

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oakhollow/supervise/supervisor"
)

// errNotWireEncodable marks control messages that carry a live Go value
// rather than data, and so cannot be marshalled onto a NATS subject.
var errNotWireEncodable = errors.New("natsbroadcast: control message is not wire-encodable")

type wireEnvelope struct {
	Kind     string          `json:"kind"`
	From     int             `json:"from,omitempty"`
	Strategy int             `json:"strategy,omitempty"`
	ID       string          `json:"id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func encode(msg supervisor.ControlMessage) ([]byte, error) {
	switch m := msg.(type) {
	case supervisor.Start:
		return json.Marshal(wireEnvelope{Kind: "start"})
	case supervisor.Stop:
		return json.Marshal(wireEnvelope{Kind: "stop", From: m.From})
	case supervisor.Kill:
		return json.Marshal(wireEnvelope{Kind: "kill", From: m.From})
	case supervisor.SuperviseWith:
		return json.Marshal(wireEnvelope{Kind: "supervise_with", Strategy: int(m.Strategy)})
	case supervisor.Message:
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("natsbroadcast: encoding message payload: %w", err)
		}
		return json.Marshal(wireEnvelope{Kind: "message", Payload: payload})
	case supervisor.Stopped:
		return json.Marshal(wireEnvelope{Kind: "stopped", ID: m.ID.String()})
	case supervisor.Faulted:
		return json.Marshal(wireEnvelope{Kind: "faulted", ID: m.ID.String()})
	case supervisor.Prune:
		return json.Marshal(wireEnvelope{Kind: "prune", ID: m.ID.String()})
	case supervisor.Deploy:
		return nil, errNotWireEncodable
	default:
		return nil, fmt.Errorf("natsbroadcast: unrecognised control message %T", msg)
	}
}

func decode(data []byte) (supervisor.ControlMessage, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("natsbroadcast: decoding envelope: %w", err)
	}
	switch env.Kind {
	case "start":
		return supervisor.Start{}, nil
	case "stop":
		return supervisor.Stop{From: env.From}, nil
	case "kill":
		return supervisor.Kill{From: env.From}, nil
	case "supervise_with":
		return supervisor.SuperviseWith{Strategy: supervisor.Strategy(env.Strategy)}, nil
	case "message":
		var payload any
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				return nil, fmt.Errorf("natsbroadcast: decoding message payload: %w", err)
			}
		}
		return supervisor.Message{Payload: payload}, nil
	case "stopped":
		id, err := supervisor.ParseIdentifier(env.ID)
		if err != nil {
			return nil, err
		}
		return supervisor.Stopped{ID: id}, nil
	case "faulted":
		id, err := supervisor.ParseIdentifier(env.ID)
		if err != nil {
			return nil, err
		}
		return supervisor.Faulted{ID: id}, nil
	case "prune":
		id, err := supervisor.ParseIdentifier(env.ID)
		if err != nil {
			return nil, err
		}
		return supervisor.Prune{ID: id}, nil
	default:
		return nil, fmt.Errorf("natsbroadcast: unrecognised wire kind %q", env.Kind)
	}
}

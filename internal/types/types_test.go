package types

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		check   func(t *testing.T, m Inbound)
		wantErr error
	}{
		{
			name: "create",
			in:   `{"type":"create","gameType":"tugOfWar","requestedCode":"ABCD","allowedNumberOfPlayers":4,"teamCount":2}`,
			check: func(t *testing.T, m Inbound) {
				c, ok := m.(Create)
				if !ok || c.GameType != "tugOfWar" || c.RequestedCode != "ABCD" || c.AllowedNumberOfPlayers != 4 || c.TeamCount != 2 {
					t.Fatalf("unexpected create: %#v", m)
				}
			},
		},
		{
			name: "resume with team override",
			in:   `{"type":"resume","code":"ABCD","resumeToken":"tok","teamIndex":1}`,
			check: func(t *testing.T, m Inbound) {
				r, ok := m.(Resume)
				if !ok || r.ResumeToken != "tok" || r.TeamIndex == nil || *r.TeamIndex != 1 {
					t.Fatalf("unexpected resume: %#v", m)
				}
			},
		},
		{
			name: "tap",
			in:   `{"type":"playerEvent","payload":{"kind":"tap","count":7}}`,
			check: func(t *testing.T, m Inbound) {
				p, ok := m.(PlayerEventMsg)
				if !ok || p.Payload.Kind != KindTap || p.Payload.Count != 7 {
					t.Fatalf("unexpected player event: %#v", m)
				}
			},
		},
		{
			name: "game over with winner",
			in:   `{"type":"controllerEvent","payload":{"kind":"gameOver","winnerTeamIndex":0}}`,
			check: func(t *testing.T, m Inbound) {
				c, ok := m.(ControllerEventMsg)
				if !ok || c.Payload.WinnerTeamIndex == nil || *c.Payload.WinnerTeamIndex != 0 {
					t.Fatalf("unexpected controller event: %#v", m)
				}
			},
		},
		{
			name: "ping",
			in:   `{"type":"ping"}`,
			check: func(t *testing.T, m Inbound) {
				if _, ok := m.(Ping); !ok {
					t.Fatalf("unexpected ping: %#v", m)
				}
			},
		},
		{name: "not json", in: `{"type":`, wantErr: ErrBadJSON},
		{name: "wrong field type", in: `{"type":"join","username":5}`, wantErr: ErrBadJSON},
		{name: "unknown type", in: `{"type":"dance"}`, wantErr: ErrUnknownType},
		{name: "missing type", in: `{}`, wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tt.check(t, m)
		})
	}
}

func TestKnownControllerKind(t *testing.T) {
	for _, k := range []string{KindPhase, KindRoundEnd, KindRoundStarting, KindRoundLive, KindGameOver, KindRequestSnapshot} {
		if !KnownControllerKind(k) {
			t.Fatalf("%q should be known", k)
		}
	}
	if KnownControllerKind("explode") {
		t.Fatal("unexpected kind accepted")
	}
}

package advisory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/types"
)

type fakeCaller struct {
	reply string
	err   error
	delay time.Duration

	gotSystem string
	gotUser   string
}

func (f *fakeCaller) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.gotSystem = systemPrompt
	f.gotUser = userPrompt
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.reply, f.err
}

func newTestJudge(c Caller, timeout time.Duration) *Judge {
	ps, _ := LoadPromptSet("")
	return NewJudge(c, ps, timeout)
}

func TestDecideApproves(t *testing.T) {
	c := &fakeCaller{reply: "```json\n{\"decision\": \"APPROVE\", \"confidence\": 82, \"reason\": \"clean retest\"}\n```"}
	j := newTestJudge(c, time.Second)

	v := j.Decide(context.Background(), types.DirectionBuy, "bullish order-block retest", types.Metrics{Trend: "STRONG_BULLISH"})
	assert.True(t, v.Approved())
	assert.Equal(t, 82, v.Confidence)
	assert.Equal(t, "clean retest", v.Reason)

	// the prompt carries the signal under judgment
	assert.Contains(t, c.gotUser, "BUY")
	assert.Contains(t, c.gotUser, "bullish order-block retest")
	assert.Contains(t, c.gotUser, "STRONG_BULLISH")
}

func TestDecideRejects(t *testing.T) {
	c := &fakeCaller{reply: `{"decision": "REJECT", "confidence": 40, "reason": "spread too wide for session"}`}
	j := newTestJudge(c, time.Second)

	v := j.Decide(context.Background(), types.DirectionSell, "bearish retest", types.Metrics{})
	assert.False(t, v.Approved())
	assert.Equal(t, "REJECT", v.Decision)
}

func TestDecideFailsClosedOnTransportError(t *testing.T) {
	c := &fakeCaller{err: errors.New("connection refused")}
	j := newTestJudge(c, time.Second)

	v := j.Decide(context.Background(), types.DirectionBuy, "retest", types.Metrics{})
	assert.False(t, v.Approved())
	assert.Equal(t, "judge unavailable", v.Reason)
}

func TestDecideFailsClosedOnTimeout(t *testing.T) {
	c := &fakeCaller{reply: `{"decision": "APPROVE"}`, delay: 500 * time.Millisecond}
	j := newTestJudge(c, 20*time.Millisecond)

	start := time.Now()
	v := j.Decide(context.Background(), types.DirectionBuy, "retest", types.Metrics{})
	assert.False(t, v.Approved())
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		approve bool
	}{
		{"bare json", `{"decision":"APPROVE","confidence":90,"reason":"ok"}`, true},
		{"fenced with prose", "Sure, here is my verdict:\n```json\n{\"decision\":\"APPROVE\",\"confidence\":70,\"reason\":\"ok\"}\n```\nGood luck.", true},
		{"lowercase decision", `{"decision":"approve","confidence":55,"reason":"ok"}`, true},
		{"string confidence salvaged", `{"decision":"APPROVE","confidence":"88","reason":"ok"}`, true},
		{"hedged decision rejects", `{"decision":"MAYBE","confidence":50,"reason":"unsure"}`, false},
		{"no json at all", "I cannot decide on this signal.", false},
		{"truncated object", `{"decision":"APPROVE","confidence":`, false},
		{"missing decision", `{"confidence":90,"reason":"ok"}`, false},
		{"confidence out of range", `{"decision":"APPROVE","confidence":400,"reason":"ok"}`, false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := parseVerdict(tc.raw)
			assert.Equal(t, tc.approve, v.Approved(), "raw: %s", tc.raw)
			if !tc.approve {
				assert.Equal(t, "REJECT", v.Decision)
			}
		})
	}
}

func TestParseVerdictStringConfidence(t *testing.T) {
	v := parseVerdict(`{"decision":"APPROVE","confidence":"88","reason":"ok"}`)
	require.True(t, v.Approved())
	assert.Equal(t, 88, v.Confidence)
}

func TestLoadPromptSetDefaults(t *testing.T) {
	ps, err := LoadPromptSet("")
	require.NoError(t, err)
	assert.NotEmpty(t, ps.System)

	user, err := ps.RenderUser(types.DirectionSell, "why", types.Metrics{Spread: 0.12})
	require.NoError(t, err)
	assert.Contains(t, user, "SELL")
	assert.Contains(t, user, "why")
}

func TestLoadPromptSetMissingFile(t *testing.T) {
	_, err := LoadPromptSet("/nonexistent/prompts.yaml")
	assert.Error(t, err)
}

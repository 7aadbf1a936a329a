package advisory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"aurum/internal/logger"
	"aurum/internal/pkg/jsonutil"
	"aurum/internal/types"
)

// 中文说明：
// AI 裁判。规则信号只有经它批准才会开仓。这是一条硬性 fail-closed 契约：
// 超时、传输错误、schema 不符、解析失败，一律等价于 REJECT，
// 绝不让一次模糊的模型输出变成一笔没人看管的仓位。

// Verdict 裁判结论。
type Verdict struct {
	Decision   string `json:"decision"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// Approved reports whether the verdict explicitly approves the signal.
func (v Verdict) Approved() bool {
	return v.Decision == "APPROVE"
}

// Caller is the minimal LLM surface the judge depends on.
type Caller interface {
	CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Judge struct {
	client  Caller
	prompts PromptSet
	timeout time.Duration
}

func NewJudge(client Caller, prompts PromptSet, timeout time.Duration) *Judge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Judge{client: client, prompts: prompts, timeout: timeout}
}

func reject(reason string) Verdict {
	return Verdict{Decision: "REJECT", Reason: reason}
}

// Decide asks the judge to approve or reject a rule signal. Never returns an
// error: every failure path collapses to REJECT with a diagnostic reason.
func (j *Judge) Decide(ctx context.Context, direction types.Direction, ruleReason string, metrics types.Metrics) Verdict {
	user, err := j.prompts.RenderUser(direction, ruleReason, metrics)
	if err != nil {
		logger.Errorf("advisory: prompt render failed: %v", err)
		return reject("prompt render failed")
	}
	cctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	raw, err := j.client.CallWithMessages(cctx, j.prompts.System, user)
	if err != nil {
		logger.Warnf("advisory: judge call failed, failing closed: %v", err)
		return reject("judge unavailable")
	}
	return parseVerdict(raw)
}

// parseVerdict extracts, schema-checks and normalizes the model output.
func parseVerdict(raw string) Verdict {
	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		logger.Warnf("advisory: no JSON object in judge output")
		return reject("unparseable judge output")
	}
	if err := validateVerdict(obj); err != nil {
		logger.Warnf("advisory: %v", err)
		return reject("malformed judge verdict")
	}
	var v Verdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		// confidence 偶见字符串形式的数字，走宽松路径补救
		v.Decision = gjson.Get(obj, "decision").String()
		v.Confidence = int(gjson.Get(obj, "confidence").Int())
		v.Reason = gjson.Get(obj, "reason").String()
	}
	v.Decision = strings.ToUpper(strings.TrimSpace(v.Decision))
	if v.Decision != "APPROVE" {
		v.Decision = "REJECT"
	}
	return v
}

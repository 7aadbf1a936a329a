package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// 中文说明：
// judge 请求/响应原文的独立落盘通道，默认关闭。排查模型误判时打开。

var (
	judgeMu  sync.Mutex
	judgeLog *log.Logger
)

func SetJudgeWriter(w io.Writer) {
	judgeMu.Lock()
	defer judgeMu.Unlock()
	if w == nil {
		judgeLog = nil
		return
	}
	judgeLog = log.New(w, "", log.LstdFlags)
}

func LogJudgeRequest(model, systemPrompt, userPrompt string) {
	logJudge("request", model, []judgeSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func LogJudgeResponse(model, raw string) {
	logJudge("response", model, []judgeSection{{Title: "RAW", Body: raw}})
}

type judgeSection struct {
	Title string
	Body  string
}

func logJudge(kind, model string, sections []judgeSection) {
	judgeMu.Lock()
	l := judgeLog
	judgeMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[JUDGE][" + kind + "]")
	if model != "" {
		b.WriteString("[" + model + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("--- " + sec.Title + " ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

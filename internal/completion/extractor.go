package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"meeting-assistant/internal/scheduling"

	"github.com/pkg/errors"
)

const extractPrompt = `从下面的会议请求中提取会议信息，直接返回JSON，不要添加任何markdown标记。
字段：title(会议主题), participants(参与者姓名数组), date(YYYY-MM-DD，未提及则为空), time(HH:MM，未提及则为空), duration(分钟，未提及则为0), description。

会议请求：%s
`

// Extractor asks a Completer to turn a free-form request into form fields.
type Extractor struct {
	Completer Completer
}

func NewExtractor(c Completer) *Extractor {
	return &Extractor{Completer: c}
}

func (e *Extractor) Extract(ctx context.Context, message string) (*scheduling.FormInput, error) {
	text, err := e.Completer.Complete(ctx, fmt.Sprintf(extractPrompt, message))
	if err != nil {
		return nil, err
	}

	raw, ok := JSONObject(text)
	if !ok {
		return nil, errors.Errorf("no JSON object in completion %q", text)
	}
	var input scheduling.FormInput
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.Wrap(err, "decode extracted meeting")
	}
	return &input, nil
}

// JSONObject returns the outermost {...} span of text, skipping any
// markdown fence the model wrapped around it.
func JSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

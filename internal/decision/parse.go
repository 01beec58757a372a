package decision

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"crypto-autotrade/internal/types"
)

// ParseIntent reads a TradeIntent out of raw oracle text. The whole text is
// tried as JSON first; failing that, the first balanced {...} in it.
// Errors wrap types.ErrDecisionParse or types.ErrDecisionValidation.
func ParseIntent(raw string) (types.TradeIntent, error) {
	text := strings.TrimSpace(raw)

	obj, ok := strictObject(text)
	if !ok {
		sub, found := firstBalancedObject(text)
		if !found {
			return types.TradeIntent{}, fmt.Errorf("%w: no JSON object in response", types.ErrDecisionParse)
		}
		if !gjson.Valid(sub) {
			return types.TradeIntent{}, fmt.Errorf("%w: embedded object is not valid JSON", types.ErrDecisionParse)
		}
		obj = gjson.Parse(sub)
	}
	return validate(obj)
}

func strictObject(text string) (gjson.Result, bool) {
	if !gjson.Valid(text) {
		return gjson.Result{}, false
	}
	res := gjson.Parse(text)
	return res, res.IsObject()
}

// firstBalancedObject returns the first {...} span whose braces balance,
// ignoring braces inside JSON string literals.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func validate(obj gjson.Result) (types.TradeIntent, error) {
	dec := obj.Get("decision")
	if dec.Type != gjson.String {
		return types.TradeIntent{}, fmt.Errorf("%w: decision missing or not a string", types.ErrDecisionValidation)
	}
	d := types.Decision(strings.ToLower(strings.TrimSpace(dec.Str)))
	switch d {
	case types.DecisionBuy, types.DecisionSell, types.DecisionHold:
	default:
		return types.TradeIntent{}, fmt.Errorf("%w: unknown decision %q", types.ErrDecisionValidation, dec.Str)
	}

	conf := obj.Get("confidence_score")
	if conf.Type != gjson.Number {
		return types.TradeIntent{}, fmt.Errorf("%w: confidence_score missing or not a number", types.ErrDecisionValidation)
	}
	if conf.Num < 0 || conf.Num > 100 {
		return types.TradeIntent{}, fmt.Errorf("%w: confidence_score %v outside [0,100]", types.ErrDecisionValidation, conf.Num)
	}

	intent := types.TradeIntent{
		Decision:        d,
		ConfidenceScore: conf.Num,
		Reason:          obj.Get("reason").String(),
	}
	// unrecognised risk levels are dropped rather than failing the cycle
	switch r := types.RiskLevel(strings.ToLower(strings.TrimSpace(obj.Get("risk_level").String()))); r {
	case types.RiskLow, types.RiskMedium, types.RiskHigh:
		intent.RiskLevel = r
	}
	if sa := obj.Get("sentiment_analysis"); sa.Exists() {
		intent.SentimentAnalysis = sa.String()
	}
	return intent, nil
}

package llm

import "strings"

// ExtractJSON attempts to extract a JSON document from model responses that
// may wrap it in markdown code blocks or surrounding prose. It never repairs
// the payload: if no JSON boundaries are found the input is returned as-is
// and left for the caller's validation to reject.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		rest := response[idx+7:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}

	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	if start, end := strings.Index(response, "{"), strings.LastIndex(response, "}"); start != -1 && end > start {
		return response[start : end+1]
	}

	if start, end := strings.Index(response, "["), strings.LastIndex(response, "]"); start != -1 && end > start {
		return response[start : end+1]
	}

	return response
}

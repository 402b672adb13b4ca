package provider

import "encoding/json"

// StreamEvent is one decoded line of a cursor-like one-shot's streaming
// JSON output.
type StreamEvent struct {
	Type string `json:"type"`
	// ChatID is the chat id `create-chat` mints, surfaced on whichever
	// event the provider attaches it to (an init-style system event or
	// the final result); once observed it becomes the session's new
	// native resume token (spec §4.3, §4.7).
	ChatID string `json:"chat_id"`
	// Message carries assistant.message content fragments.
	Message struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	// Result is set on the final event; any event carrying a result
	// object, or of type "result", terminates the stream whatever its
	// ExitCode/Error values.
	Result *struct {
		ExitCode int    `json:"exit_code"`
		Error    string `json:"error"`
	} `json:"result,omitempty"`
}

// StreamParser is a restartable, one-line-at-a-time parser for the
// cursor-like streaming format: it processes one JSON object per line
// and is finite (terminating on a "result" event or EOF (spec §9).
type StreamParser struct {
	done   bool
	chatID string
}

// ParseLine decodes one line of streamed output. It returns the text
// fragments to forward as stdout_line events, the chat id observed so
// far (if any), and whether the stream has now terminated. Malformed
// lines are skipped; the returned error is always nil.
func (p *StreamParser) ParseLine(line []byte) (texts []string, chatID string, terminated bool, err error) {
	if p.done {
		return nil, p.chatID, true, nil
	}

	var ev StreamEvent
	if unmarshalErr := json.Unmarshal(line, &ev); unmarshalErr != nil {
		// Malformed lines are skipped, not fatal: the provider may emit
		// partial or non-JSON diagnostic lines interleaved with the
		// stream.
		return nil, p.chatID, false, nil
	}

	if ev.ChatID != "" {
		p.chatID = ev.ChatID
	}

	if ev.Type == "result" || ev.Result != nil {
		p.done = true
		return nil, p.chatID, true, nil
	}

	if ev.Type == "assistant" && len(ev.Message.Content) > 0 {
		for _, c := range ev.Message.Content {
			if c.Text != "" {
				texts = append(texts, c.Text)
			}
		}
	}
	return texts, p.chatID, false, nil
}

// ChatID returns the most recently observed chat id, if any.
func (p *StreamParser) ChatID() string {
	return p.chatID
}

// Done reports whether a terminating result event has already been
// observed.
func (p *StreamParser) Done() bool {
	return p.done
}

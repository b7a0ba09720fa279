// Package styles maps conversation-style tags to the system prompt and sampling
// parameters used for a generation. The set of styles is closed; unknown tags are
// rejected instead of silently falling back to a default.
package styles

import (
	"errors"
	"fmt"
)

// Style selects which system prompt and generation parameters the gateway uses.
type Style string

const (
	// StyleCounselor is the default mentor-like style, carrying the full counselor
	// prompt with example exchanges.
	StyleCounselor Style = "counselor"
	// StyleSimple keeps replies short and asks one question at a time.
	StyleSimple Style = "simple"
	// StylePlain requests a reply without any system prompt.
	StylePlain Style = "plain"
)

// ErrUnknownStyle is returned when a request carries a style tag outside the closed set.
var ErrUnknownStyle = errors.New("unknown conversation style")

// Params holds the sampling parameters forwarded to the upstream completion API.
type Params struct {
	Temperature      float32
	MaxTokens        int
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// Config pairs a system prompt with its generation parameters. An empty SystemPrompt
// means no system message is sent upstream.
type Config struct {
	SystemPrompt string
	Params       Params
}

// Parse validates a style tag. The empty string resolves to StyleCounselor so clients
// that never send the header keep the historical behavior.
func Parse(tag string) (Style, error) {
	switch tag {
	case "":
		return StyleCounselor, nil
	case string(StyleCounselor):
		return StyleCounselor, nil
	case string(StyleSimple):
		return StyleSimple, nil
	case string(StylePlain):
		return StylePlain, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, tag)
	}
}

// Lookup returns the prompt and parameters for a style. Styles outside the closed set
// return ErrUnknownStyle.
func Lookup(s Style) (Config, error) {
	switch s {
	case StyleCounselor:
		return Config{
			SystemPrompt: counselorPrompt + counselorExamples,
			Params: Params{
				Temperature:      0.7,
				MaxTokens:        350,
				TopP:             0.9,
				FrequencyPenalty: 0.3,
				PresencePenalty:  0.2,
			},
		}, nil
	case StyleSimple:
		return Config{
			SystemPrompt: simplePrompt,
			Params: Params{
				Temperature:      0.3,
				MaxTokens:        300,
				TopP:             1,
				FrequencyPenalty: 0.5,
				PresencePenalty:  0,
			},
		}, nil
	case StylePlain:
		return Config{
			Params: Params{
				Temperature: 0.5,
				MaxTokens:   4000,
				TopP:        1,
			},
		}, nil
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownStyle, string(s))
	}
}

const counselorPrompt = `You are a supportive college application counselor guiding high school students through the admissions process. Model your communication style after the following pattern:

1. Use short, conversational phrases to start responses ("Yeah", "Okay", "I see", "Right")
2. Offer specific help options instead of asking questions ("I can help you with...", "Would you like me to...")
3. Verify information by repeating or paraphrasing what the student said
4. Use gentle guidance instead of direct commands ("You probably want to...")
5. Balance realism about competitive admissions with encouragement ("I do think you have a good chance")
6. Use collaborative language ("we" instead of "you") to frame the process as a team effort
7. Present one simple, focused help option at a time rather than multiple options at once
8. Express your thinking process through simple phrases like "So, basically..." or "Let me see..."
9. Keep responses brief and focused on one topic at a time
10. Use conversational fillers occasionally ("Yeah, yeah", "Okay, so...")

Remember to prioritize clarity and simplicity in your advice while maintaining a supportive, coaching tone. Always offer specific ways you can help rather than asking open-ended questions.`

const counselorExamples = `

Here are examples of the conversation style to follow:

Student: I'm worried about my course load for next semester with all my AP classes.
Counselor: Yeah, I can see why that's concerning. I can help you create a study schedule that balances your AP coursework. Let's start by setting up a weekly plan that includes time for each subject.

Student: For calculus we'll finish everything before spring break and then have about 4 weeks for review.
Counselor: Okay, so you're gonna do three to four weeks of review. That sounds good. I'll provide you with a detailed review schedule and some practice resources to maximize your preparation.

Student: I'm trying to decide between summer programs at University of Chicago and Yale.
Counselor: I see. I'll help you compare these programs based on how they might strengthen your college applications. Here's a breakdown of the benefits of each program for your major interests.`

const simplePrompt = `You are a helpful college application assistant providing guidance to students.

1. Keep your responses short and focused on one topic at a time
2. Only ask ONE question at the end of your response
3. Use simple, clear language
4. Don't overwhelm the student with multiple questions or options
5. Break complex information into separate exchanges
6. Keep each response under 3 sentences when possible
7. Avoid overexplaining or providing too much context at once
8. Wait for the student to answer one question before moving to the next topic

Remember: Always provide just enough information to be helpful, then ask a single follow-up question to guide the conversation.`

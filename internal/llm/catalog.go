package llm

// ModelOption is one selectable entry of the model menu.
type ModelOption struct {
	Label string
	Kind  Kind
	Model string
}

// Catalog is the model menu offered by the web form and `qnagen models`.
var Catalog = []ModelOption{
	{Label: "GPT-4o (OpenAI)", Kind: KindOpenAI, Model: "gpt-4o"},
	{Label: "GPT-4o mini (OpenAI)", Kind: KindOpenAI, Model: "gpt-4o-mini"},
	{Label: "GPT-3.5 Turbo (OpenAI)", Kind: KindOpenAI, Model: "gpt-3.5-turbo"},
	{Label: "Claude 3 Opus (Anthropic)", Kind: KindAnthropic, Model: "claude-3-opus-20240229"},
	{Label: "Claude Sonnet 4 (Anthropic)", Kind: KindAnthropic, Model: "claude-sonnet-4-20250514"},
	{Label: "Gemini Pro (Google)", Kind: KindGoogle, Model: "gemini-pro"},
	{Label: "Gemini Flash (Google)", Kind: KindGoogle, Model: "gemini-2.0-flash"},
	{Label: "Claude 3 Sonnet (Anthropic via gateway)", Kind: KindGateway, Model: "anthropic.claude-3-sonnet-20240229-v1:0"},
	{Label: "Claude 3 Haiku (Anthropic via gateway)", Kind: KindGateway, Model: "anthropic.claude-3-haiku-20240307-v1:0"},
}

// LookupOption finds a catalog entry by label.
func LookupOption(label string) (ModelOption, bool) {
	for _, o := range Catalog {
		if o.Label == label {
			return o, true
		}
	}
	return ModelOption{}, false
}

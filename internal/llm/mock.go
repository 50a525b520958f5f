package llm

import "context"

// MockClient responde con un texto fijo y acumula los prompts recibidos
// para poder asertar sobre ellos en tests de handlers.
type MockClient struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockClient) Generate(_ context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

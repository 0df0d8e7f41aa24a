package llm

import (
	"context"
	"sync"
)

// MockStep is one scripted reply.
type MockStep struct {
	Text string
	Err  error
}

// MockClient replays a scripted sequence of replies. Once the script runs
// out it keeps repeating the final step, so a single-step mock behaves as a
// constant responder. Safe for concurrent use.
type MockClient struct {
	mu    sync.Mutex
	steps []MockStep
	next  int
	calls int
}

// NewMockClient creates a mock client with the given script.
func NewMockClient(steps ...MockStep) *MockClient {
	if len(steps) == 0 {
		steps = []MockStep{{Text: "mock response"}}
	}
	return &MockClient{steps: steps}
}

func (c *MockClient) Generate(_ context.Context, _ string) (string, error) {
	return c.step()
}

func (c *MockClient) GenerateWithSystem(_ context.Context, _, _ string) (string, error) {
	return c.step()
}

func (c *MockClient) ModelName() string {
	return "mock"
}

// Calls returns how many generation requests the mock has served.
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *MockClient) step() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	s := c.steps[c.next]
	if c.next < len(c.steps)-1 {
		c.next++
	}
	return s.Text, s.Err
}

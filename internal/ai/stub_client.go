package ai

import "context"

// StubClient заглушка, которая не делает реальных запросов.
type StubClient struct{}

func NewStubClient() *StubClient { return &StubClient{} }

func (c *StubClient) GenerateFromImage(_ context.Context, _, _ string) (string, error) {
	return "Stone lions at rest,\nDust of centuries settles,\nWhat do you see here?", nil
}

func (c *StubClient) GenerateFromImageAndText(_ context.Context, _, _, _ string) (string, error) {
	return "Your words drift like leaves,\nThe gallery holds its breath,\nWhere shall we look next?", nil
}

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"xhstoolbox/pkg/ui"
)

type recordingFlow struct {
	stops int
}

func (f *recordingFlow) Stop() { f.stops++ }

type recordingSender struct {
	titles []string
}

func (s *recordingSender) Send(title, message string) error {
	s.titles = append(s.titles, title)
	return nil
}

func TestFailLoginStopsFlowAndExits(t *testing.T) {
	var out bytes.Buffer
	ui.SetOutput(&out)
	ui.SetColor(false)
	t.Cleanup(func() { ui.SetOutput(nil) })

	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = osExit })

	flow := &recordingFlow{}
	sender := &recordingSender{}
	failLogin(flow, ui.NewNotifierWithSender(sender), errors.New("QR code expired"))

	assert.Equal(t, 1, flow.stops)
	assert.Equal(t, 1, code)
	assert.Equal(t, []string{"Login failed"}, sender.titles)
	assert.Contains(t, out.String(), "Login failed: QR code expired")
}

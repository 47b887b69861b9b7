package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewSetsLevelAndFormatter(t *testing.T) {
	l := New(logrus.WarnLevel)
	if l.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want %v", l.GetLevel(), logrus.WarnLevel)
	}
	if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.TextFormatter", l.Formatter)
	}
}

func TestStageAddsField(t *testing.T) {
	l := NewSilent()
	entry := Stage(l, "extract")
	if entry.Data["stage"] != "extract" {
		t.Errorf("stage field = %v, want %q", entry.Data["stage"], "extract")
	}
}

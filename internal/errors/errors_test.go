package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapMessage(t *testing.T) {
	err := New(KindOSQuery, "permission denied")
	assert.Equal(t, "permission denied", err.Error())

	wrapped := Wrap(err, KindAnalysis, "classify 10.0.0.5:443")
	assert.Equal(t, "classify 10.0.0.5:443: permission denied", wrapped.Error())
	assert.True(t, Is(wrapped, err))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindIO, "write report"))
	assert.NoError(t, Wrapf(nil, KindIO, "write %s", "report.html"))
}

func TestGetKind(t *testing.T) {
	assert.Equal(t, KindIO, GetKind(Errorf(KindIO, "open %s", "/nope")))
	assert.Equal(t, KindOSQuery, GetKind(fmt.Errorf("outer: %w", New(KindOSQuery, "inner"))))
	assert.Equal(t, KindUnknown, GetKind(errors.New("plain")))
}

func TestAttributes(t *testing.T) {
	err := Attr(New(KindIO, "write failed"), "path", "/root/report.html")
	err = Attr(Wrap(err, KindIO, "report"), "report_type", "Html")

	attrs := GetAttributes(err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "/root/report.html", attrs["path"])
	assert.Equal(t, "Html", attrs["report_type"])

	var e *Error
	require.True(t, As(Attr(errors.New("plain"), "k", 1), &e))
	assert.Equal(t, KindUnknown, e.Kind)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(New(KindUsage, "bad flag")))
	assert.Equal(t, 1, ExitCode(New(KindAnalysis, "api down")))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "os_query", KindOSQuery.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

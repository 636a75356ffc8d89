package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/transport"
)

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func TestParseTimeArg(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1700000000000", 1700000000000},
		{"2026-03-14T12:00:00Z", time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC).UnixMilli()},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()},
		{"2h", testNow.Add(-2 * time.Hour).UnixMilli()},
		{" 30m ", testNow.Add(-30 * time.Minute).UnixMilli()},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseTimeArg(tc.in, testNow)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "yesterday", "-5m"} {
		_, err := parseTimeArg(bad, testNow)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTimeRange(t *testing.T) {
	v := viper.New()
	start, end, err := timeRange(v, testNow)
	require.NoError(t, err)
	assert.Nil(t, start)
	assert.Nil(t, end)

	v.Set("since", "1h")
	start, end, err = timeRange(v, testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-time.Hour).UnixMilli(), *start)
	assert.Equal(t, testNow.UnixMilli(), *end)

	v = viper.New()
	v.Set("until", "1000")
	start, end, err = timeRange(v, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *start)
	assert.Equal(t, int64(1000), *end)

	v.Set("since", "2000")
	_, _, err = timeRange(v, testNow)
	assert.ErrorContains(t, err, "after")

	v = viper.New()
	v.Set("since", "nope")
	_, _, err = timeRange(v, testNow)
	assert.ErrorContains(t, err, "--since")
}

func TestPreview(t *testing.T) {
	img := transport.Item{Format: history.FormatImage, ImageWidth: history.Ptr[int64](4), ImageHeight: history.Ptr[int64](2)}
	assert.Equal(t, "[image 4x2]", preview(img, 20))

	txt := transport.Item{Format: history.FormatText, Text: history.Ptr("  hello\n\tworld  ")}
	assert.Equal(t, "hello world", preview(txt, 20))

	long := transport.Item{Format: history.FormatText, Text: history.Ptr(strings.Repeat("é", 30))}
	got := preview(long, 10)
	assert.Equal(t, strings.Repeat("é", 9)+"…", got)

	file := transport.Item{Format: history.FormatFile, FilePath: history.Ptr("/tmp/a.txt")}
	assert.Equal(t, "/tmp/a.txt", preview(file, 20))
}

func TestPrintItems(t *testing.T) {
	var buf bytes.Buffer
	printItems(&buf, nil)
	assert.Equal(t, "No history.\n", buf.String())

	buf.Reset()
	printItems(&buf, []transport.Item{{
		ID:        7,
		Format:    history.FormatColor,
		Category:  history.CategoryText,
		Color:     history.Ptr("#ff0000"),
		CreatedAt: testNow.UnixMilli(),
	}})
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "color/text")
	assert.Contains(t, out, "#ff0000")
}

func TestServeErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")

	assert.NoError(t, serveErr(ctx, "http", nil))
	assert.ErrorIs(t, serveErr(ctx, "http", boom), boom)

	cancel()
	assert.NoError(t, serveErr(ctx, "http", boom))
}

func TestFmtAge(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "5m ago", fmtAge(now.Add(-5*time.Minute-10*time.Second)))
	assert.Equal(t, "3h ago", fmtAge(now.Add(-3*time.Hour-time.Minute)))
	assert.Equal(t, "4d ago", fmtAge(now.Add(-4*24*time.Hour-time.Hour)))
}

func TestCheckTCPAuth(t *testing.T) {
	assert.NoError(t, checkTCPAuth("", ""))
	assert.NoError(t, checkTCPAuth("127.0.0.1:8752", "secret"))
	assert.ErrorContains(t, checkTCPAuth("127.0.0.1:8752", ""), "--token")
}

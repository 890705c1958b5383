package subtitle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestReadSRTBytes(t *testing.T) {
	data := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\nagain\n")

	file, err := ReadSRTBytes(data, "embedded://sample")
	require.NoError(t, err)
	require.Len(t, file.Cues, 2)
	assert.Equal(t, "Hello", file.Cues[0].Text)
	assert.Equal(t, "World\nagain", file.Cues[1].Text)
	assert.Equal(t, 3*time.Second, file.Cues[1].Start)
	assert.Equal(t, time.Second, file.Cues[1].Duration())
	assert.Equal(t, "SRT", file.Format)
	assert.Equal(t, "embedded://sample", file.Path)
	assert.Equal(t, []string{"Hello", "World\nagain"}, file.Texts())
}

func TestReadSRTBytes_ByteOrderMark(t *testing.T) {
	data := []byte("\ufeff1\n00:00:01,000 --> 00:00:02,000\nHello\n")

	file, err := ReadSRTBytes(data, "bom.srt")
	require.NoError(t, err)
	require.Len(t, file.Cues, 1)
	assert.Equal(t, 1, file.Cues[0].Index)
	assert.Equal(t, "Hello", file.Cues[0].Text)
}

func TestReadSRTBytes_BadTimecode(t *testing.T) {
	_, err := ReadSRTBytes([]byte("1\nnot a time\nHello\n"), "bad.srt")
	assert.Error(t, err)
}

func TestReader_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep01.srt")
	content := "1\r\n00:00:01,000 --> 00:00:02,000\r\nThis is a fairly long English sentence for detection.\r\n\r\n" +
		"2\r\n00:00:03,000 --> 00:00:04,000\r\nAnother English sentence follows right after the first one.\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	file, err := NewReader(path).Read()
	require.NoError(t, err)
	require.Len(t, file.Cues, 2)
	assert.Equal(t, language.English, file.Language)

	_, err = NewReader(filepath.Join(t.TempDir(), "missing.srt")).Read()
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	cues := []Cue{
		{Text: "Hello, world!"},
		{Text: "こんにちは、世界!"},
		{Text: "こんにちは、世界!"},
		{Text: "Привет, мир!"},
	}
	assert.Equal(t, language.Japanese, detectLanguage(cues))
	assert.Equal(t, language.Und, detectLanguage(nil))
}

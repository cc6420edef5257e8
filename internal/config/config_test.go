package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFile(t *testing.T) {
	r := require.New(t)
	p := writeConfig(t, `
mode: test
secret: s3cret
relay:
  max_chat_length: 200
  read_timeout: 0s
directory:
  meetings:
    - id: M1
      class_id: C1
      status: ended
  classes:
    - id: C1
      members: [alice, bob]
`)
	cfg, err := LoadFile(p)
	r.NoError(err)

	r.Equal("test", cfg.Mode)
	r.Equal(8080, cfg.Port)
	r.Equal(":5001", cfg.Server.TCPAddr)
	r.Equal(200, cfg.Relay.MaxChatLength)
	r.Equal(16<<20, cfg.Relay.MaxFrameSize)
	r.Equal(time.Duration(0), cfg.Relay.ReadTimeout)
	r.Equal(10*time.Second, cfg.Relay.HandshakeTimeout)

	meetings := cfg.Directory.DomainMeetings()
	r.Len(meetings, 1)
	r.Equal(domain.MeetingEnded, meetings[0].Status)
	// ids keep their case so meetings still match their rosters
	r.Equal(domain.ClassID("C1"), meetings[0].ClassID)
	r.Equal([]domain.UserID{"alice", "bob"}, cfg.Directory.Rosters()["C1"])
}

func TestLoadFile_EnvOverride(t *testing.T) {
	r := require.New(t)
	p := writeConfig(t, "mode: test\nsecret: from-file\n")
	t.Setenv("MEETRELAY_SECRET", "from-env")
	t.Setenv("MEETRELAY_RELAY_SEND_QUEUE_SIZE", "8")

	cfg, err := LoadFile(p)
	r.NoError(err)
	r.Equal("from-env", cfg.Secret)
	r.Equal(8, cfg.Relay.SendQueueSize)
}

func TestLoadFile_Invalid(t *testing.T) {
	r := require.New(t)

	_, err := LoadFile(writeConfig(t, "mode: test\n"))
	r.ErrorContains(err, "Secret")

	_, err = LoadFile(writeConfig(t, "mode: test\nsecret: x\nport: 70000\n"))
	r.ErrorContains(err, "Port")

	_, err = LoadFile(writeConfig(t, "mode: test\nsecret: x\ndirectory:\n  classes:\n    - members: [alice]\n"))
	r.ErrorContains(err, "Classes[0].ID")
}

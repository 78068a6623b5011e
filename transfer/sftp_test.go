package transfer

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSFTPConfigDefaults(t *testing.T) {
	cfg := SFTPConfig{Host: "h", Username: "u", RemotePath: "/srv"}
	if cfg.port() != 22 {
		t.Errorf("default port: %d", cfg.port())
	}
	if cfg.connectTimeout() != defaultConnectTimeout {
		t.Errorf("default timeout: %v", cfg.connectTimeout())
	}

	cfg.Port = 2022
	cfg.ConnectTimeout = 5 * time.Second
	if cfg.port() != 2022 || cfg.connectTimeout() != 5*time.Second {
		t.Errorf("explicit values not used: %d, %v", cfg.port(), cfg.connectTimeout())
	}
}

func TestSFTPConfigFingerprint(t *testing.T) {
	a := SFTPConfig{Host: "h", Username: "u", RemotePath: "/srv"}
	b := a
	if a.fingerprint() != b.fingerprint() {
		t.Error("identical configs should share a fingerprint")
	}
	b.Password = "new"
	if a.fingerprint() == b.fingerprint() {
		t.Error("credential change should alter the fingerprint")
	}
	c := a
	c.Port = 22
	if a.fingerprint() != c.fingerprint() {
		t.Error("explicit default port should not alter the fingerprint")
	}
}

func TestSFTPBackendConfigured(t *testing.T) {
	tests := []struct {
		cfg  SFTPConfig
		want bool
	}{
		{SFTPConfig{Host: "h", Username: "u", RemotePath: "/srv"}, true},
		{SFTPConfig{Username: "u", RemotePath: "/srv"}, false},
		{SFTPConfig{Host: "h", RemotePath: "/srv"}, false},
		{SFTPConfig{Host: "h", Username: "u"}, false},
	}
	for _, test := range tests {
		if got := NewSFTP(test.cfg).Configured(); got != test.want {
			t.Errorf("Configured(%+v) = %v, want %v", test.cfg, got, test.want)
		}
	}
}

func TestRemotePath(t *testing.T) {
	b := NewSFTP(SFTPConfig{Host: "h", Username: "u", RemotePath: "/srv/bedrock"})
	tests := []struct {
		rel, want string
	}{
		{"", "/srv/bedrock"},
		{"behavior_packs", "/srv/bedrock/behavior_packs"},
		{"/behavior_packs/", "/srv/bedrock/behavior_packs"},
		{"worlds/main", "/srv/bedrock/worlds/main"},
	}
	for _, test := range tests {
		if got := b.remotePath(test.rel); got != test.want {
			t.Errorf("remotePath(%q) = %q, want %q", test.rel, got, test.want)
		}
	}

	root := NewSFTP(SFTPConfig{Host: "h", Username: "u", RemotePath: "/"})
	if got := root.remotePath("worlds"); got != "/worlds" {
		t.Errorf("root-relative path: %q", got)
	}
}

func TestDisplayPath(t *testing.T) {
	b := NewSFTP(SFTPConfig{Host: "example.com", Username: "mc", RemotePath: "/srv/bedrock"})
	if got := b.DisplayPath(); got != "sftp://mc@example.com:22/srv/bedrock" {
		t.Errorf("got %q", got)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "'plain'"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
	}
	for _, test := range tests {
		if got := shellQuote(test.in); got != test.want {
			t.Errorf("shellQuote(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestArchiveStrategyThreshold(t *testing.T) {
	// 15 files upload directly; the 16th tips the tree into archive mode.
	if useArchiveStrategy(15) {
		t.Error("15 files should upload directly")
	}
	if !useArchiveStrategy(16) {
		t.Error("16 files should use the archive strategy")
	}

	dir := t.TempDir()
	for i := 0; i < archiveFileThreshold; i++ {
		name := filepath.Join(dir, fmt.Sprintf("file%02d.txt", i))
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if useArchiveStrategy(countLocalFiles(dir, archiveFileThreshold)) {
		t.Error("tree at the threshold should upload directly")
	}
	if err := os.WriteFile(filepath.Join(dir, "one_more.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !useArchiveStrategy(countLocalFiles(dir, archiveFileThreshold)) {
		t.Error("tree above the threshold should use the archive strategy")
	}
}

// offsetFile models a remote file whose server writes at the request
// offset, the case where an append-mode open alone does not position the
// stream.
type offsetFile struct {
	data    []byte
	offset  int64
	written int64
}

func (f *offsetFile) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, os.ErrInvalid
	}
	f.offset = offset
	return offset, nil
}

func (f *offsetFile) Write(p []byte) (int, error) {
	end := f.offset + int64(len(p))
	if int64(len(f.data)) < end {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.offset:], p)
	f.offset = end
	f.written += int64(len(p))
	return len(p), nil
}

func streamTestContent(size int) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return content
}

func TestStreamFromFreshUpload(t *testing.T) {
	content := streamTestContent(3*uploadChunkSize + 17)
	remote := &offsetFile{}
	var lastCurrent, lastTotal int64
	err := streamFrom(bytes.NewReader(content), remote, 0, int64(len(content)), func(current, total int64) {
		lastCurrent, lastTotal = current, total
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(remote.data, content) {
		t.Error("uploaded content does not match the source")
	}
	if remote.written != int64(len(content)) {
		t.Errorf("streamed %d bytes, want %d", remote.written, len(content))
	}
	if lastCurrent != int64(len(content)) || lastTotal != int64(len(content)) {
		t.Errorf("final progress %d/%d, want %d/%d", lastCurrent, lastTotal, len(content), len(content))
	}
}

func TestStreamFromResumesAtRemoteOffset(t *testing.T) {
	content := streamTestContent(2*uploadChunkSize + 101)
	resume := int64(uploadChunkSize + 7)
	// A fresh handle starts at offset zero even when the remote file
	// already holds the first bytes.
	remote := &offsetFile{data: append([]byte(nil), content[:resume]...)}

	var currents []int64
	err := streamFrom(bytes.NewReader(content), remote, resume, int64(len(content)), func(current, total int64) {
		currents = append(currents, current)
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(remote.data, content) {
		t.Error("resumed upload corrupted the remote file")
	}
	if want := int64(len(content)) - resume; remote.written != want {
		t.Errorf("streamed %d bytes, want only the missing %d", remote.written, want)
	}
	if len(currents) == 0 || currents[0] <= resume || currents[len(currents)-1] != int64(len(content)) {
		t.Errorf("progress positions %v should run from past %d to %d", currents, resume, len(content))
	}
}

// deadlineConn records every deadline set on the underlying transport.
type deadlineConn struct {
	net.Conn
	deadlines []time.Time
}

func (c *deadlineConn) SetDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

func (c *deadlineConn) Read(p []byte) (int, error)  { return 0, io.EOF }
func (c *deadlineConn) Write(p []byte) (int, error) { return len(p), nil }

func TestIdleConnDeadlineOnlyWhileArmed(t *testing.T) {
	fc := &deadlineConn{}
	ic := &idleConn{Conn: fc, timeout: time.Second}

	// Control traffic and long-running commands run without a deadline.
	if _, err := ic.Read(nil); err != io.EOF {
		t.Fatal(err)
	}
	if _, err := ic.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if len(fc.deadlines) != 0 {
		t.Fatalf("disarmed conn set %d deadlines", len(fc.deadlines))
	}

	ic.arm()
	if len(fc.deadlines) != 1 || fc.deadlines[0].IsZero() {
		t.Fatalf("arm should set a deadline, got %v", fc.deadlines)
	}
	if _, err := ic.Read(nil); err != io.EOF {
		t.Fatal(err)
	}
	if len(fc.deadlines) != 2 {
		t.Fatalf("armed read should refresh the deadline, got %d", len(fc.deadlines))
	}

	ic.disarm()
	if len(fc.deadlines) != 3 || !fc.deadlines[2].IsZero() {
		t.Fatalf("disarm should clear the deadline, got %v", fc.deadlines)
	}
	if _, _ = ic.Read(nil); len(fc.deadlines) != 3 {
		t.Error("disarmed read should not touch the deadline")
	}
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		cfg     SFTPConfig
		message string
	}{
		{SFTPConfig{}, "SFTP host is required."},
		{SFTPConfig{Host: "h"}, "SFTP username is required."},
		{SFTPConfig{Host: "h", Username: "u"}, "Remote server path is required."},
	}
	for _, test := range tests {
		ok, message := Validate(test.cfg)
		if ok || message != test.message {
			t.Errorf("Validate(%+v) = %v, %q", test.cfg, ok, message)
		}
	}
}

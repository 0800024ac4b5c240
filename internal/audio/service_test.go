package audio

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	s := NewService(afero.NewMemMapFs(), nil, zerolog.Nop())
	s.SetPermission(true)
	return s
}

func TestStart_RequiresPermission(t *testing.T) {
	s := NewService(afero.NewMemMapFs(), nil, zerolog.Nop())

	_, err := s.Start()
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestStart_RequiresDevice(t *testing.T) {
	s := newTestService()
	s.SetDeviceAvailable(false)

	_, err := s.Start()
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestStart_SecondRecordingIsBusy(t *testing.T) {
	s := newTestService()

	h, err := s.Start()
	require.NoError(t, err)

	_, err = s.Start()
	assert.ErrorIs(t, err, ErrCaptureBusy)

	// Closing the first frees the slot.
	s.Stop(h)
	_, err = s.Start()
	assert.NoError(t, err)
}

func TestStop_ReturnsCapturedAudio(t *testing.T) {
	s := newTestService()

	h, err := s.Start()
	require.NoError(t, err)

	s.PushChunk([]byte("chunk-one "))
	s.PushChunk([]byte("chunk-two"))

	clip := s.Stop(h)
	require.NotNil(t, clip)

	data, err := clip.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "chunk-one chunk-two", string(data))

	require.NoError(t, clip.Delete())
	// Deleting twice is fine.
	assert.NoError(t, clip.Delete())
}

func TestStop_EmptyCaptureYieldsNil(t *testing.T) {
	s := newTestService()

	h, err := s.Start()
	require.NoError(t, err)

	clip := s.Stop(h)
	assert.Nil(t, clip)
	assert.Nil(t, s.ActiveHandle())
}

func TestStop_StaleHandleIsNoOp(t *testing.T) {
	s := newTestService()

	h1, err := s.Start()
	require.NoError(t, err)
	s.PushChunk([]byte("audio"))
	clip := s.Stop(h1)
	require.NotNil(t, clip)

	h2, err := s.Start()
	require.NoError(t, err)
	s.PushChunk([]byte("more audio"))

	// A second stop with the old handle must not close the new recording.
	assert.Nil(t, s.Stop(h1))
	require.NotNil(t, s.ActiveHandle())
	assert.Equal(t, h2.ID, s.ActiveHandle().ID)
}

func TestPushChunk_DroppedWithoutOpenRecording(t *testing.T) {
	s := newTestService()

	// Must not panic or create files.
	s.PushChunk([]byte("late chunk"))

	h, err := s.Start()
	require.NoError(t, err)
	clip := s.Stop(h)
	assert.Nil(t, clip, "late chunk must not count as captured audio")
}

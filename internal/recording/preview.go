package recording

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

const defaultCamera = "/dev/video0"

type cameraPreview struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	once   sync.Once
}

func buildPreviewArgs(camera string) []string {
	if camera == "" {
		camera = defaultCamera
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-window_title", "mockroom preview",
		"-f", "v4l2", "-i", camera,
	}
}

func startCameraPreview(ctx context.Context, camera string) (*cameraPreview, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, fmt.Errorf("ffplay not found: %w", err)
	}
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(pctx, "ffplay", buildPreviewArgs(camera)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	pv := &cameraPreview{cmd: cmd, cancel: cancel}
	go func() { _ = cmd.Wait() }()
	return pv, nil
}

func (p *cameraPreview) Stop() error {
	p.once.Do(p.cancel)
	return nil
}

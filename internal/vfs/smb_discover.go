package vfs

import (
	"bufio"
	"os"
	"strings"
)

// DiscoverMountedSMBShares scans /proc/mounts for already-mounted
// CIFS/SMB shares and returns them as browsable Sources. This proxy
// does not speak the SMB protocol itself; a share has to already be
// mounted at the OS level (cifs-utils, autofs, or similar) before it
// shows up here. That keeps the dependency surface to what the
// filesystem already gives us instead of vendoring an SMB client.
// Linux-only; returns an empty, non-error result on any other
// platform or if /proc/mounts can't be read.
func DiscoverMountedSMBShares() []Source {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil
	}
	defer f.Close()

	var sources []Source
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		device, mountPoint, fsType := fields[0], fields[1], fields[2]
		if fsType != "cifs" && fsType != "smb3" {
			continue
		}
		sources = append(sources, Source{
			ID:   "smb-" + mountPoint,
			Name: device,
			Root: mountPoint,
			Kind: SMB,
		})
	}
	return sources
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"elkdrive/internal/proto"
)

func TestDeviceInfoSeparatesUnknownIDs(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf, false).deviceInfo(0x0C, proto.DeviceResponse{
		ProductID:  12,
		Messages:   []byte{byte(proto.TypeDirListRequest), 0x7A, byte(proto.TypeVersionRequest), 0x55},
		DeviceName: "Digitakt",
	})
	out := buf.String()
	for _, want := range []string{
		"device_id:  0x0C",
		"messages:   DirListRequest, VersionRequest\n",
		"other ids:  0x7A 0x55\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	newPrinter(&buf, false).deviceInfo(0x10, proto.DeviceResponse{Messages: []byte{byte(proto.TypeDeviceRequest)}})
	if strings.Contains(buf.String(), "other ids") {
		t.Errorf("unexpected other ids line:\n%s", buf.String())
	}
}

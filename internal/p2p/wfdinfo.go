package p2p

import (
	"fmt"
	"strconv"
	"strings"
)

// wfdDeviceInfo decodes the 16-bit "WFD Device Information" field that
// leads the wfd_dev_info sub-element advertised by a peer during P2P
// discovery. Only the two capability bits this daemon cares about are
// modeled: source-capable and sink-capable; a dual-role device (e.g. a
// tablet that can mirror to, or receive from, another device) sets both.
type wfdDeviceInfo struct {
	raw uint16
}

const (
	wfdBitSourceCapable uint16 = 1 << 0
	wfdBitSinkCapable   uint16 = 1 << 4
)

// parseWfdDeviceInfo parses the leading 2 bytes (4 hex digits) of a
// wfd_dev_info attribute, e.g. "0x00111c440032". An empty or too-short
// string decodes to an all-zero (unsupported) field rather than an error,
// since an absent or malformed sub-element just means "ignore this peer".
func parseWfdDeviceInfo(hex string) wfdDeviceInfo {
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if len(hex) < 4 {
		return wfdDeviceInfo{}
	}
	v, err := strconv.ParseUint(hex[:4], 16, 16)
	if err != nil {
		return wfdDeviceInfo{}
	}
	return wfdDeviceInfo{raw: uint16(v)}
}

func (w wfdDeviceInfo) IsSupportedSource() bool { return w.raw&wfdBitSourceCapable != 0 }
func (w wfdDeviceInfo) IsSupportedSink() bool   { return w.raw&wfdBitSinkCapable != 0 }
func (w wfdDeviceInfo) IsSupported() bool       { return w.IsSupportedSource() || w.IsSupportedSink() }

func (w wfdDeviceInfo) roles() []Role {
	var roles []Role
	if w.IsSupportedSink() {
		roles = append(roles, RoleSink)
	}
	if w.IsSupportedSource() {
		roles = append(roles, RoleSource)
	}
	return roles
}

func (w wfdDeviceInfo) String() string {
	return fmt.Sprintf("wfd_dev_info{source=%t sink=%t}", w.IsSupportedSource(), w.IsSupportedSink())
}

package axes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// HID item types
const (
	itemMain   = 0
	itemGlobal = 1
	itemLocal  = 2
)

// HID item tags
const (
	tagInput       = 0x8
	tagUsagePage   = 0x0
	tagReportCount = 0x9
	tagUsage       = 0x0
	tagUsageMin    = 0x1
	tagUsageMax    = 0x2
)

const (
	pageGenericDesktop = 0x01
	longItemPrefix     = 0xFE
	inputConstant      = 0x01
	inputVariable      = 0x02
)

// largest Report Count honoured, the value itself is untrusted
const maxReportCount = 255

var usageNames = map[uint32]string{
	0x30: "X",
	0x31: "Y",
	0x32: "Z",
	0x33: "Rx",
	0x34: "Ry",
	0x35: "Rz",
	0x36: "Slider",
	0x37: "Dial",
	0x38: "Wheel",
	0x39: "Hat Switch",
}

// ErrTruncated is returned when a descriptor ends mid item
var ErrTruncated = errors.New("truncated report descriptor")

// ParseDescriptor walks a HID report descriptor and names the Generic
// Desktop axis fields of its input reports, numbered from 1 in the order
// they appear. Only the first MaxAxes axes are named. Whatever was parsed
// before an error is still returned.
func ParseDescriptor(desc []byte) (map[int]string, error) {
	names := make(map[int]string)
	axis := 1

	var usagePage, reportCount uint32
	var usages []uint32
	var usageMin, usageMax uint32
	haveRange := 0

	for i := 0; i < len(desc); {
		prefix := desc[i]
		if prefix == longItemPrefix {
			if i+1 >= len(desc) {
				return names, ErrTruncated
			}
			i += 3 + int(desc[i+1])
			continue
		}
		size := int(prefix & 0x03)
		if size == 3 {
			size = 4
		}
		if i+1+size > len(desc) {
			return names, fmt.Errorf("%w at byte %d", ErrTruncated, i)
		}
		var data uint32
		for j := 0; j < size; j++ {
			data |= uint32(desc[i+1+j]) << (8 * j)
		}
		itemType := (prefix >> 2) & 0x03
		tag := prefix >> 4

		switch itemType {
		case itemMain:
			if tag == tagInput && data&inputConstant == 0 && data&inputVariable != 0 {
				fields := usages
				if haveRange == 2 {
					fields = nil
					for u := usageMin; u <= usageMax && len(fields) < int(reportCount); u++ {
						fields = append(fields, u)
					}
				}
				for k := 0; k < int(reportCount) && len(fields) > 0; k++ {
					usage := fields[len(fields)-1]
					if k < len(fields) {
						usage = fields[k]
					}
					page, id := usagePage, usage
					if usage > 0xFFFF {
						page, id = usage>>16, usage&0xFFFF
					}
					if page != pageGenericDesktop {
						continue
					}
					if name, found := usageNames[id]; found {
						names[axis] = name
						axis++
						if axis > MaxAxes {
							return names, nil
						}
					}
				}
			}
			usages, haveRange = nil, 0
		case itemGlobal:
			switch tag {
			case tagUsagePage:
				usagePage = data
			case tagReportCount:
				reportCount = min(data, maxReportCount)
			}
		case itemLocal:
			switch tag {
			case tagUsage:
				if size == 4 {
					usages = append(usages, data)
				} else {
					usages = append(usages, data&0xFFFF)
				}
			case tagUsageMin:
				usageMin = data
				haveRange++
			case tagUsageMax:
				usageMax = data
				haveRange++
			}
		}
		i += 1 + size
	}
	return names, nil
}

// DescriptorLookup finds axis names for a device from its hidraw node
type DescriptorLookup struct {
	// Dir is the hidraw class directory, normally /sys/class/hidraw
	Dir string
	Log *common.Logger
}

// AxisNames returns 1 based axis number -> usage name. target is either a
// path to a report descriptor (or hidraw node directory) or a device name
// to look for under Dir. Failures are logged and give an empty map.
func (d *DescriptorLookup) AxisNames(target string) map[int]string {
	path, err := d.descriptorPath(target)
	if err != nil {
		d.Log.Err("descriptor lookup for %q: %s", target, err)
		return map[int]string{}
	}
	desc, err := os.ReadFile(path)
	if err != nil {
		d.Log.Err("descriptor lookup for %q: %s", target, err)
		return map[int]string{}
	}
	names, err := ParseDescriptor(desc)
	if err != nil {
		d.Log.Err("descriptor %s: %s", path, err)
	}
	return names
}

func (d *DescriptorLookup) descriptorPath(target string) (string, error) {
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return filepath.Join(target, "device", "report_descriptor"), nil
		}
		return target, nil
	}
	nodes, err := os.ReadDir(d.Dir)
	if err != nil {
		return "", err
	}
	for _, node := range nodes {
		dir := filepath.Join(d.Dir, node.Name())
		if name := hidName(filepath.Join(dir, "device", "uevent")); name != "" &&
			strings.EqualFold(name, strings.TrimSpace(target)) {
			return filepath.Join(dir, "device", "report_descriptor"), nil
		}
	}
	return "", fmt.Errorf("no hidraw device named %q", target)
}

func hidName(uevent string) string {
	f, err := os.Open(uevent)
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name, found := strings.CutPrefix(scanner.Text(), "HID_NAME="); found {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

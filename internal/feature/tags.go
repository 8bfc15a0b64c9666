package feature

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// OtherTagsKey is the column holding the packed tag blob.
	OtherTagsKey = "other_tags"
	// IDKey is the primary identifier column.
	IDKey = "osm_id"
	// WayIDKey is the secondary, way level identifier column.
	WayIDKey = "osm_way_id"
)

// tagPair matches "key"=>"value"; quotes inside key or value must be escaped.
var tagPair = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"\s*=>\s*"((?:[^"\\]|\\.)*)"`)

var unescaper = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

// ParseTags decodes a "key"=>"value" blob. Text that does not form a pair is ignored.
func ParseTags(blob string) map[string]string {
	matches := tagPair.FindAllStringSubmatch(blob, -1)
	if len(matches) == 0 {
		return nil
	}

	tags := make(map[string]string, len(matches))
	for _, m := range matches {
		key := unescaper.Replace(m[1])
		if key == "" {
			continue
		}
		tags[key] = unescaper.Replace(m[2])
	}

	return tags
}

// FormatTags encodes tags into the blob format read by ParseTags, keys in the given order.
func FormatTags(keys []string, tags map[string]string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `"`, `\"`)

	var b strings.Builder
	for _, k := range keys {
		v, ok := tags[k]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + escaper.Replace(k) + `"=>"` + escaper.Replace(v) + `"`)
	}

	return b.String()
}

// ExpandTags parses the blob stored under field for every feature and writes the
// decoded values as attributes. All observed keys are registered as columns before
// any feature is written; attributes already holding a non-empty value are kept.
// It also coalesces identifiers and assigns feature ids.
func (c *Collection) ExpandTags(field string) {
	parsed := make([]map[string]string, len(c.Features))
	keys := make(map[string]struct{})

	for i, f := range c.Features {
		blob := f.Attributes.String(field)
		if blob == "" {
			continue
		}
		tags := ParseTags(blob)
		for k := range tags {
			keys[k] = struct{}{}
		}
		parsed[i] = tags
	}

	c.Register(keys)

	for i, f := range c.Features {
		for k, v := range parsed[i] {
			if !f.Attributes.Empty(k) {
				continue
			}
			f.Attributes[k] = v
		}
	}

	c.AssignIDs()
}

// AssignIDs copies osm_way_id into an empty osm_id and derives feature ids.
// Features without any identifier get a positional id.
func (c *Collection) AssignIDs() {
	for i, f := range c.Features {
		if f.Attributes.Empty(IDKey) && !f.Attributes.Empty(WayIDKey) {
			f.Attributes[IDKey] = f.Attributes[WayIDKey]
		}

		switch {
		case !f.Attributes.Empty(IDKey):
			f.ID = f.Attributes.String(IDKey)
		case f.ID == "":
			f.ID = c.Name + "/" + strconv.Itoa(i)
		}
	}
}

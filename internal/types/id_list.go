// id_list.go
//
// Sales operations data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of salesops.
// salesops is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// salesops is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with salesops.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.


package types

import (
	"encoding/json"
	"strings"
)

// IDList is a set of ids that can be unmarshaled from a single id, a JSON array of ids,
// or a comma-separated string. Duplicates are dropped, first occurrence order is kept.
type IDList []uint64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (l *IDList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	var raw []FlexID
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, part := range strings.Split(s, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := ParseID(part)
			if err != nil {
				return err
			}
			raw = append(raw, FlexID(id))
		}
	default:
		var single FlexID
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		raw = []FlexID{single}
	}

	seen := make(map[uint64]struct{}, len(raw))
	out := make(IDList, 0, len(raw))
	for _, id := range raw {
		v := id.Uint64()
		if v == 0 {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	*l = out
	return nil
}

// Slice converts IDList back to []uint64.
func (l IDList) Slice() []uint64 {
	return []uint64(l)
}

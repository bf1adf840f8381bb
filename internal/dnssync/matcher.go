package dnssync

import (
	"strings"

	"ngrokdns/internal/dynu"
)

// Role 记录在发布服务中承担的角色。
type Role string

const (
	RoleAddress Role = "address"
	RoleService Role = "service"
)

const (
	DefaultAddressNode = "mcngrok"
	DefaultServiceNode = "_minecraft._tcp"
)

// Matcher 按类型和节点名选择记录，空节点名匹配区域根。
type Matcher struct {
	AddressNode string
	ServiceNode string
}

// Match 是 Matcher.Match 的结果。记录为 nil 表示没有该角色的记录，
// Duplicates 统计每个角色多出的匹配记录数。
type Match struct {
	Address    *dynu.Record
	Service    *dynu.Record
	Duplicates map[Role]int
}

// Match 选出名为 AddressNode 的 A 记录和名为 ServiceNode 的 SRV 记录。
// 同一角色匹配多条时取 id 最小的一条，结果与返回顺序无关。
func (m Matcher) Match(records []dynu.Record) Match {
	out := Match{Duplicates: map[Role]int{}}
	for i := range records {
		rec := records[i]
		switch {
		case strings.EqualFold(rec.RecordType, dynu.RecordTypeA) && sameNode(rec.NodeName, m.AddressNode):
			out.Address = pick(out.Address, &rec, RoleAddress, out.Duplicates)
		case strings.EqualFold(rec.RecordType, dynu.RecordTypeSRV) && sameNode(rec.NodeName, m.ServiceNode):
			out.Service = pick(out.Service, &rec, RoleService, out.Duplicates)
		}
	}
	return out
}

func pick(current, candidate *dynu.Record, role Role, dups map[Role]int) *dynu.Record {
	if current == nil {
		return candidate
	}
	dups[role]++
	if candidate.ID < current.ID {
		return candidate
	}
	return current
}

func sameNode(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

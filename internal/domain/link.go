package domain

// LinkIDSeparator joins the endpoint identities of a derived link ID.
const LinkIDSeparator = " > "

// Link is a normalized link record.
type Link struct {
	Index int
	// ID is "source > target"; it is not required to be unique.
	ID string
	// SourceID and TargetID are the endpoint identities.
	SourceID string
	TargetID string
	// Source and Target are set by the simulation when it resolves the
	// identities against the seeded nodes. Either stays nil for an
	// endpoint that matches no node.
	Source *Node
	Target *Node
	Data   Record
}

// NewLinks normalizes link records. Each record is updated in place:
// "source" and "target" receive the values of the configured endpoint
// fields and "id" receives the derived link ID.
func NewLinks(records []Record, fields FieldMapping) []*Link {
	fields = fields.WithDefaults()
	links := make([]*Link, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			rec = Record{}
		}
		src := rec[fields.LinkSource]
		dst := rec[fields.LinkTarget]
		l := &Link{
			Index:    i,
			SourceID: Identity(src),
			TargetID: Identity(dst),
			Data:     rec,
		}
		l.ID = l.SourceID + LinkIDSeparator + l.TargetID

		rec["source"] = src
		rec["target"] = dst
		rec["id"] = l.ID
		links = append(links, l)
	}
	return links
}

// Resolved reports whether both endpoints reference nodes.
func (l *Link) Resolved() bool {
	return l.Source != nil && l.Target != nil
}

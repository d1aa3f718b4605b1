package scheme

// BIOToBILOU converts a BIO tag sequence to BILOU. The output has the same
// length as the input.
//
// The last token of every entity becomes L-TYPE, or U-TYPE when the entity
// is a single token. An I-TYPE that does not continue an open entity of the
// same type starts a new entity, as if it were B-TYPE.
//
// Tags that are not valid BIO (unparseable, or already L-/U-) close any open
// entity and are copied through unchanged; SpansFromBILOU reports them.
func BIOToBILOU(tags []string) []string {
	out := make([]string, len(tags))

	start, end := -1, -1
	label := ""
	closeEntity := func() {
		if start < 0 {
			return
		}
		if start == end {
			out[start] = Tag{Prefix: Unit, Label: label}.String()
		} else {
			out[end] = Tag{Prefix: Last, Label: label}.String()
		}
		start, end, label = -1, -1, ""
	}
	openEntity := func(i int, l string) {
		start, end, label = i, i, l
		out[i] = Tag{Prefix: Begin, Label: l}.String()
	}

	for i, raw := range tags {
		tag, err := ParseTag(raw)
		if err != nil || !tag.IsBIO() {
			closeEntity()
			out[i] = raw
			continue
		}

		switch tag.Prefix {
		case Outside:
			closeEntity()
			out[i] = OutsideTag
		case Begin:
			closeEntity()
			openEntity(i, tag.Label)
		case Inside:
			if start >= 0 && label == tag.Label {
				end = i
				out[i] = tag.String()
				continue
			}
			closeEntity()
			openEntity(i, tag.Label)
		}
	}
	closeEntity()

	return out
}

// BILOUToBIO converts a BILOU tag sequence back to BIO: L-TYPE becomes
// I-TYPE and U-TYPE becomes B-TYPE. Other tags are copied unchanged.
func BILOUToBIO(tags []string) []string {
	out := make([]string, len(tags))
	for i, raw := range tags {
		tag, err := ParseTag(raw)
		if err != nil {
			out[i] = raw
			continue
		}
		switch tag.Prefix {
		case Last:
			tag.Prefix = Inside
		case Unit:
			tag.Prefix = Begin
		}
		out[i] = tag.String()
	}
	return out
}

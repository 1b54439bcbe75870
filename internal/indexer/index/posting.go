package index

// Field names indexed for every quote.
const (
	FieldText  = "text"
	FieldUsers = "users"
)

// Fields lists the indexed fields in search order.
var Fields = []string{FieldText, FieldUsers}

type Posting struct {
	DocID     string
	Frequency int
	Positions []int
}

type PostingList []Posting

type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

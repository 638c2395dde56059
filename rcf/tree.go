package rcf

// Tree is a node of the canonical attribute tree produced by Normalize.
//
// The set of node types is closed: String, Int, Float, Bool, Null, Array and
// Object. Object members keep the order in which the normalizer appended them;
// Serialize never reorders anything.
type Tree interface {
	treeNode()
}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
	Null   struct{}
	Array  []Tree
)

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Tree
}

// Object is an ordered list of members.
type Object []Member

func (String) treeNode() {}
func (Int) treeNode()    {}
func (Float) treeNode()  {}
func (Bool) treeNode()   {}
func (Null) treeNode()   {}
func (Array) treeNode()  {}
func (Object) treeNode() {}

// Keys returns the member keys in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

func (o *Object) add(key string, v Tree) {
	*o = append(*o, Member{Key: key, Value: v})
}

func stringArray(ss []string) Array {
	out := make(Array, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}

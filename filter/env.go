package filter

/*
Here the Env used in the event target filters is defined.
Once this struct is fixed, it should not be changed, otherwise filters in history events may not compile any more
(f.e. if properties are renamed etc.)
*/

type Member struct {
	Id   string
	Nick string
	Role string
}

type Room struct {
	Id    string
	Title string
	Round string
}

type Source struct {
	Member
}

type Target struct {
	Member
}

type Env struct {
	Room
	Source
	Target
	Created int64
	Name    string
	Tags    map[string]string

	AsInt         func(string) int64
	AsFloat       func(string) float64
	AsStringSlice func(string) []string
	AsIntSlice    func(string) []int64
	AsFloatSlice  func(string) []float64
}

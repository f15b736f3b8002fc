package category

type Category struct {
	ID   string
	Name string
}

type SubCategory struct {
	ID         string
	CategoryID string
	Name       string
}

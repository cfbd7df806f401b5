package domain

type CategoryTree struct {
	Category
	Subcategories []Category `json:"subcategories"`
}

// BuildCategoryTree groups a flat category list into top-level nodes with their children.
// Input order is kept at both levels. Children whose parent is not in the list are left out.
func BuildCategoryTree(categories []Category) []CategoryTree {
	tree := make([]CategoryTree, 0)
	index := make(map[int64]int)

	for _, category := range categories {
		if !category.IsTopLevel() {
			continue
		}
		index[category.ID] = len(tree)
		tree = append(tree, CategoryTree{Category: category, Subcategories: []Category{}})
	}

	for _, category := range categories {
		if category.IsTopLevel() {
			continue
		}
		if i, ok := index[*category.ParentCategoryID]; ok {
			tree[i].Subcategories = append(tree[i].Subcategories, category)
		}
	}

	return tree
}

func Subcategories(categories []Category, parentID int64) []Category {
	children := make([]Category, 0)
	for _, category := range categories {
		if category.IsChildOf(parentID) {
			children = append(children, category)
		}
	}
	return children
}

// FamilyIDs returns the parent id followed by the ids of its children.
func FamilyIDs(categories []Category, parentID int64) []int64 {
	ids := []int64{parentID}
	for _, child := range Subcategories(categories, parentID) {
		ids = append(ids, child.ID)
	}
	return ids
}

package domain

type DefaultSubcategory struct {
	Name  string
	Icon  string
	Color string
}

type DefaultCategory struct {
	Name          string
	Icon          string
	Color         string
	Subcategories []DefaultSubcategory
}

// DefaultCategories is the catalog every account is seeded with, in seeding order.
var DefaultCategories = []DefaultCategory{
	withSubcategories("Home", "Home", "#FAD390",
		"Rent/Mortgage", "Home",
		"Electricity & Water", "Wifi",
		"Maintenance", "Home",
		"Furniture & Appliances", "Home",
	),
	withSubcategories("Transport", "Car", "#45B7D1",
		"Fuel", "Fuel",
		"Car Insurance", "Briefcase",
		"Parking", "Car",
		"Maintenance & Repairs", "Car",
		"Licensing", "Car",
	),
	withSubcategories("Food", "Utensils", "#FF6B6B",
		"Supermarket", "ShoppingBag",
		"Restaurants", "Pizza",
		"Coffee & Snacks", "Coffee",
	),
	withSubcategories("Clothing", "Shirt", "#DDA15E",
		"Adults", "Shirt",
		"Kids", "Baby",
		"Shoes", "Shirt",
	),
	withSubcategories("Education", "GraduationCap", "#96CEB4",
		"Tuition", "GraduationCap",
		"Books & Supplies", "Briefcase",
		"Courses", "GraduationCap",
	),
	withSubcategories("Health", "HeartPulse", "#4ECDC4",
		"Doctor Visits", "HeartPulse",
		"Medication", "Briefcase",
		"Dental", "HeartPulse",
		"Treatments", "Dumbbell",
	),
	withSubcategories("Culture & Leisure", "Gamepad2", "#A29BFE",
		"Cinema & Theater", "Film",
		"Concerts & Events", "Gamepad2",
		"Books", "Briefcase",
		"Subscriptions", "Wifi",
	),
	withSubcategories("Unexpected Expenses", "Briefcase", "#E74C3C"),
	withSubcategories("Insurance", "Briefcase", "#3498DB",
		"Health Insurance", "HeartPulse",
		"Home Insurance", "Home",
		"Life Insurance", "HeartPulse",
	),
	withSubcategories("Communication", "Smartphone", "#9B59B6"),
	withSubcategories("Other", "Briefcase", "#B2BEC3"),
}

// withSubcategories builds a catalog entry from name/icon pairs. Subcategories share the parent color.
func withSubcategories(name, icon, color string, pairs ...string) DefaultCategory {
	category := DefaultCategory{Name: name, Icon: icon, Color: color, Subcategories: []DefaultSubcategory{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		category.Subcategories = append(category.Subcategories, DefaultSubcategory{
			Name:  pairs[i],
			Icon:  pairs[i+1],
			Color: color,
		})
	}
	return category
}

// DefaultCategoryCount is the number of rows one seed run inserts.
func DefaultCategoryCount(catalog []DefaultCategory) int {
	count := 0
	for _, category := range catalog {
		count += 1 + len(category.Subcategories)
	}
	return count
}

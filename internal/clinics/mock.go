package clinics

func rating(r float64) *float64 { return &r }

// MockClinics is the clinic list used in demo mode and by the demo backend
var MockClinics = []Clinic{
	{
		ID:          "1",
		Name:        "Lagos University Teaching Hospital",
		Address:     "Idi-Araba, Surulere, Lagos",
		Phone:       "+234 1 234 5678",
		Latitude:    6.5244,
		Longitude:   3.3792,
		IsEmergency: true,
		Hours:       "24/7 Emergency Services",
		Services:    []string{"Emergency Care", "Surgery", "ICU", "Cardiology"},
		Rating:      rating(4.2),
	},
	{
		ID:          "2",
		Name:        "National Hospital Abuja",
		Address:     "Central Business District, Abuja",
		Phone:       "+234 9 876 5432",
		Latitude:    9.0765,
		Longitude:   7.3986,
		IsEmergency: true,
		Hours:       "24/7 Emergency Services",
		Services:    []string{"Emergency Care", "Trauma Center", "Pediatrics"},
		Rating:      rating(4.5),
	},
	{
		ID:          "3",
		Name:        "University of Nigeria Teaching Hospital",
		Address:     "Ituku-Ozalla, Enugu",
		Phone:       "+234 42 123 4567",
		Latitude:    6.5244,
		Longitude:   7.5112,
		IsEmergency: true,
		Hours:       "24/7 Emergency Services",
		Services:    []string{"Emergency Care", "Surgery", "Maternity", "Oncology"},
		Rating:      rating(4.1),
	},
	{
		ID:          "4",
		Name:        "Enugu State University Teaching Hospital",
		Address:     "Park Lane, Enugu",
		Phone:       "+234 42 987 6543",
		Latitude:    6.4414,
		Longitude:   7.4989,
		IsEmergency: true,
		Hours:       "24/7 Emergency Services",
		Services:    []string{"Emergency Care", "Internal Medicine", "Orthopedics"},
		Rating:      rating(3.9),
	},
	{
		ID:          "5",
		Name:        "Nsukka General Hospital",
		Address:     "University Road, Nsukka, Enugu",
		Phone:       "+234 42 771 2345",
		Latitude:    6.8567,
		Longitude:   7.3958,
		IsEmergency: true,
		Hours:       "24/7 Emergency Services",
		Services:    []string{"Emergency Care", "General Medicine", "Pediatrics"},
		Rating:      rating(3.7),
	},
	{
		ID:          "6",
		Name:        "Memfys Hospital for Women",
		Address:     "Independence Layout, Enugu",
		Phone:       "+234 42 456 7890",
		Latitude:    6.4531,
		Longitude:   7.5248,
		IsEmergency: false,
		Hours:       "Mon-Fri: 8AM-6PM, Sat: 9AM-2PM",
		Services:    []string{"Maternity", "Gynecology", "Pediatrics"},
		Rating:      rating(4.3),
	},
}

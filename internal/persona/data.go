package persona

const (
	// sinkDomain receives placeholder addresses. Nothing is delivered there.
	sinkDomain = "zfill.local"

	country = "United States"
)

var firstNames = []string{
	"Alex", "Jordan", "Morgan", "Casey", "Riley", "Taylor", "Avery", "Quinn",
	"Sam", "Jamie", "Charlie", "Dakota", "Parker", "Reese", "Skylar", "Blake",
	"Cameron", "Drew", "Finley", "Harper", "Hayden", "Hunter", "Jesse", "Kai",
	"Logan", "Mason", "Nova", "Oakley", "Payton", "Phoenix", "River", "Rowan",
	"Sage", "Spencer", "Sydney", "Tatum", "Winter", "Wren", "Ellis", "Emerson",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
	"Taylor", "Moore", "Jackson", "Martin", "Lee", "Thompson", "White", "Harris",
	"Clark", "Lewis", "Robinson", "Walker", "Young", "Hall", "Allen", "King",
	"Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores", "Green",
}

var cities = []string{
	"Springfield", "Riverside", "Fairview", "Oak Park", "Maple Grove",
	"Georgetown", "Arlington", "Madison", "Salem", "Franklin",
	"Clinton", "Bristol", "Dover", "Manchester", "Newport",
	"Auburn", "Clayton", "Milton", "Oxford", "Hudson",
}

// state pairs a postal code with its full name; both are drawn together.
type state struct {
	code string
	name string
}

var states = []state{
	{"CA", "California"},
	{"TX", "Texas"},
	{"FL", "Florida"},
	{"NY", "New York"},
	{"PA", "Pennsylvania"},
	{"IL", "Illinois"},
	{"OH", "Ohio"},
	{"GA", "Georgia"},
	{"NC", "North Carolina"},
	{"MI", "Michigan"},
}

var streetNames = []string{
	"Main", "Oak", "Maple", "Cedar", "Elm", "Park", "Pine", "Washington",
	"Lake", "Hill", "Forest", "River", "Sunset", "Spring", "Church", "Walnut",
}

var streetTypes = []string{
	"St", "Ave", "Rd", "Blvd", "Dr", "Ln", "Way", "Ct",
}

// suffix alphabet for usernames and placeholder emails
const suffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// tlds stripped from a domain when deriving the site identifier
var tlds = []string{".com", ".net", ".org", ".io", ".co"}

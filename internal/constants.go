package internal

type uiTheme struct {
	PrimaryColor   string
	SecondaryColor string
	SuccessColor   string
	ErrorColor     string
	TertiaryColor  string
}

var Theme = uiTheme{
	PrimaryColor:   "39",      // Blue for titles and running transfers
	SecondaryColor: "#bbbbbb", // Gray for help text
	SuccessColor:   "#5FD75F", // Green for completed transfers
	ErrorColor:     "#FF5F5F", // Red for failed transfers
	TertiaryColor:  "#585858", // Dim gray for panel borders
}

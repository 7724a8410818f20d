package gem

// Version and BuildDate identify a build; both can be overridden at link
// time with -ldflags "-X ...".
var (
	Version   = "0.1.0"
	BuildDate = "dev"
)

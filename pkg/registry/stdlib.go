package registry

import "github.com/google/uuid"

// stdlibUUIDs identifies packages that ship with the language distribution.
// They have no independent source tree to acquire, so manifest entries
// carrying these UUIDs are skipped without comment during resolution.
var stdlibUUIDs = map[uuid.UUID]string{
	uuid.MustParse("ade2ca70-3891-5945-98fb-dc099432e06a"): "Dates",
	uuid.MustParse("8ba89e20-285c-5b6f-9357-94700520ee1b"): "Distributed",
	uuid.MustParse("b77e0a4c-d291-57a0-90e8-8db25a27a240"): "InteractiveUtils",
	uuid.MustParse("76f85450-5226-5b5a-8eaa-529ad045b433"): "LibGit2",
	uuid.MustParse("8f399da3-3557-5675-b5ff-fb832c97cbdb"): "Libdl",
	uuid.MustParse("37e2e46d-f89d-539d-b4ee-838fcccc9c8e"): "LinearAlgebra",
	uuid.MustParse("56ddb016-857b-54e1-b83d-db4d58db5568"): "Logging",
	uuid.MustParse("d6f4376e-aef5-505a-96c1-9c027394607a"): "Markdown",
	uuid.MustParse("44cfe95a-1eb2-52ea-b672-e2afdf69b78f"): "Pkg",
	uuid.MustParse("de0858da-6303-5e67-8744-51eddeeeb8d7"): "Printf",
	uuid.MustParse("9a3f8284-a2c9-5f02-9a11-845980a1fd5c"): "Random",
	uuid.MustParse("ea8e919c-243c-51af-8825-aaa63cd721ce"): "SHA",
	uuid.MustParse("9e88b42a-f829-5b0c-bbe9-9e923198166b"): "Serialization",
	uuid.MustParse("6462fe0b-24de-5631-8697-dd941f90decc"): "Sockets",
	uuid.MustParse("2f01184e-e22b-5df5-ae63-d93ebab69eaf"): "SparseArrays",
	uuid.MustParse("10745b16-79ce-11e8-11f9-7d13ad32a3b2"): "Statistics",
	uuid.MustParse("8dfed614-e22c-5e08-85e1-65c5234f0b40"): "Test",
	uuid.MustParse("cf7118a7-6976-5b1a-9a39-7adc72f591a4"): "UUIDs",
	uuid.MustParse("4ec0a83e-493e-50e2-b9ac-8f72acf5a8f5"): "Unicode",
}

// IsStdlib reports whether the UUID belongs to a standard-library component.
func IsStdlib(id uuid.UUID) bool {
	_, ok := stdlibUUIDs[id]
	return ok
}

// StdlibName returns the recorded name for a standard-library UUID.
func StdlibName(id uuid.UUID) (string, bool) {
	name, ok := stdlibUUIDs[id]
	return name, ok
}

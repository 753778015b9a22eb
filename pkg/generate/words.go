package generate

import "strings"

var (
	cities = []string{
		"Warszawa", "Kraków", "Łódź", "Wrocław", "Poznań", "Gdańsk", "Szczecin",
		"Bydgoszcz", "Lublin", "Białystok", "Katowice", "Gdynia", "Częstochowa",
		"Radom", "Toruń", "Rzeszów", "Kielce", "Olsztyn", "Opole", "Zielona Góra",
	}
	streets = []string{
		"Kwiatowa", "Polna", "Leśna", "Słoneczna", "Krótka", "Szkolna", "Ogrodowa",
		"Lipowa", "Brzozowa", "Łąkowa", "Kościuszki", "Mickiewicza", "Sienkiewicza",
		"Słowackiego", "Kolejowa", "Parkowa", "Długa", "Polskiej Organizacji Wojskowej",
	}
	firstNames = []string{
		"Anna", "Maria", "Katarzyna", "Małgorzata", "Agnieszka", "Barbara", "Ewa",
		"Piotr", "Krzysztof", "Andrzej", "Tomasz", "Paweł", "Michał", "Marcin",
		"Jakub", "Zofia", "Łukasz", "Grzegorz",
	}
	lastNames = []string{
		"Nowak", "Kowalski", "Wiśniewski", "Wójcik", "Kowalczyk", "Kamiński",
		"Lewandowski", "Zieliński", "Szymański", "Woźniak", "Dąbrowski", "Kozłowski",
		"Jankowski", "Mazur", "Kwiatkowski", "Krawczyk",
	}
	companySuffixes = []string{"Sp. z o.o.", "S.A.", "Sp. j.", "Sp. k.", "Energia Sp. z o.o."}
	mailDomains     = []string{"example.com", "example.pl", "test.invalid"}

	businessVerbs      = []string{"wdrażanie", "optymalizacja", "integracja", "rozwój", "monitorowanie"}
	businessAdjectives = []string{"rozproszonych", "elastycznych", "zintegrowanych", "skalowalnych", "bezpiecznych"}
	businessNouns      = []string{"usług", "procesów", "rozwiązań", "platform", "sieci dystrybucyjnych"}
)

var polishFold = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n", "ó", "o", "ś", "s", "ź", "z", "ż", "z",
	"Ą", "a", "Ć", "c", "Ę", "e", "Ł", "l", "Ń", "n", "Ó", "o", "Ś", "s", "Ź", "z", "Ż", "z",
)

func asciiLower(s string) string {
	return strings.ToLower(polishFold.Replace(s))
}

package wallpaper

// DefaultTitles 是壁纸查询的内置标题列表；重复项保留，挑选时按条目均匀分布。
var DefaultTitles = []string{
	"Fullmetal Alchemist",
	"Death Note",
	"Cowboy Bebop",
	"Spirited Away",
	"Melancholy of Haruhi Suzumiya",
	"Neon Genesis Evangelion",
	"Bleach",
	"Code Geass",
	"FLCL",
	"Naruto",
	"Samurai Champloo",
	"Trigun",
	"Gurren Lagann",
	"Howl's Moving Castle",
	"Fullmetal Alchemist: Brotherhood",
	"Clannad",
	"Fruits Basket",
	"Akira",
	"Cowboy Bebop: The Movie",
	"Full Metal Panic? Fumoffu",
	"5 Centimeters Per Second",
	"Rurouni Kenshin",
	"Girl Who Leapt Through Time",
	"Hellsing",
	"Fullmetal Alchemist",
	"Ghost in the Shell",
	"Steins Gate",
	"Darker than Black",
	"Fate/stay night",
	"Claymore",
	"Toradora!",
	"Inuyasha",
	"Neon Genesis Evangelion: The End of Evangelion",
	"My Neighbor Totoro",
	"Grave of the Fireflies",
	"Dragon Ball Z",
	"Berserk",
	"Shakugan no Shana",
	"One Piece",
	"Attack on Titan",
	"Naruto Shippūden",
	"Samurai 7",
	"Soul Eater",
	"Ergo Proxy",
	"Black Lagoon",
	"Gungrave",
	"Dragon Ball",
	"Yu Yu Hakusho",
	"Mobile Suit Gundam Seed",
	"Durarara!!",
}
